package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/revisor/internal/db/migrations"
)

func TestSchemaVersion(t *testing.T) {
	assert.Equal(t, 1, SchemaVersion())
}

func TestMigrationsAreGooseAnnotated(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)

	for _, e := range entries {
		data, err := migrations.FS.ReadFile(e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(data), "-- +goose Up", e.Name())
		assert.Contains(t, string(data), "-- +goose Down", e.Name())
	}
}
