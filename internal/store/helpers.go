package store

import (
	"encoding/json"
	"fmt"

	"github.com/persistorai/revisor/internal/models"
)

// maxListLimit is a defense-in-depth cap on limit values for list queries.
const maxListLimit = 1000

// clampPage normalizes list pagination arguments.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// expectedMatches reports whether a stored last revision number is the one
// a save was prepared against.
func expectedMatches(stored, expected *int) bool {
	if stored == nil || expected == nil {
		return stored == nil && expected == nil
	}

	return *stored == *expected
}

func marshalDocument(rec models.DocumentRecord) (fields, embeds []byte, err error) {
	f := rec.Fields
	if f == nil {
		f = map[string]any{}
	}

	fields, err = json.Marshal(f)
	if err != nil {
		return nil, nil, fmt.Errorf("marshalling document fields: %w", err)
	}

	e := rec.Embeds
	if e == nil {
		e = map[string][]models.EmbeddedItem{}
	}

	embeds, err = json.Marshal(e)
	if err != nil {
		return nil, nil, fmt.Errorf("marshalling document embeds: %w", err)
	}

	return fields, embeds, nil
}
