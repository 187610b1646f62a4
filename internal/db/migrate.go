// Migration runner using goose (github.com/pressly/goose/v3).
//
// Migration files live in internal/db/migrations/ and are embedded via //go:embed.
// `revisor serve` applies pending migrations on startup when the postgres
// backend is selected; `revisor migrate` applies them and exits.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/dbpool"
)

// MigrationState describes one migration file and whether it is applied.
type MigrationState struct {
	Version   int64     `json:"version"`
	File      string    `json:"file"`
	Applied   bool      `json:"applied"`
	AppliedAt time.Time `json:"applied_at,omitzero"`
}

// withProvider opens a database/sql handle over the pool's connection string
// and hands a goose provider to fn. goose requires a *sql.DB.
func withProvider(pool *dbpool.Pool, fsys fs.FS, fn func(*goose.Provider) error) error {
	sqlDB, err := sql.Open("pgx", pool.ConnString())
	if err != nil {
		return fmt.Errorf("opening sql.DB for migrations: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	return fn(provider)
}

// RunMigrations applies all pending migrations from the provided filesystem.
// The fsys should contain goose-annotated SQL files (e.g. "00001_revisions.sql").
func RunMigrations(ctx context.Context, pool *dbpool.Pool, log *logrus.Logger, fsys fs.FS) error {
	return withProvider(pool, fsys, func(provider *goose.Provider) error {
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}

		for _, r := range results {
			if r.Error != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
			}

			log.WithFields(logrus.Fields{
				"version":  r.Source.Version,
				"file":     r.Source.Path,
				"duration": r.Duration,
			}).Info("migration.applied")
		}

		if len(results) == 0 {
			log.Debug("migration.up_to_date")
		}

		return nil
	})
}

// MigrationStatus lists every embedded migration with its applied state.
func MigrationStatus(ctx context.Context, pool *dbpool.Pool, fsys fs.FS) ([]MigrationState, error) {
	var out []MigrationState

	err := withProvider(pool, fsys, func(provider *goose.Provider) error {
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("reading migration status: %w", err)
		}

		for _, st := range statuses {
			out = append(out, MigrationState{
				Version:   st.Source.Version,
				File:      st.Source.Path,
				Applied:   st.State == goose.StateApplied,
				AppliedAt: st.AppliedAt,
			})
		}

		return nil
	})

	return out, err
}
