package store

import (
	"encoding/json"
	"fmt"

	"github.com/persistorai/revisor/internal/models"
)

// scanDocument scans a single row into a models.DocumentRecord.
func scanDocument(scan func(dest ...any) error) (*models.DocumentRecord, error) {
	var rec models.DocumentRecord
	var fields, embeds []byte

	err := scan(
		&rec.ID,
		&rec.Type,
		&fields,
		&embeds,
		&rec.LastRevisionNumber,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fields, &rec.Fields); err != nil {
		return nil, fmt.Errorf("unmarshalling document fields: %w", err)
	}

	if err := json.Unmarshal(embeds, &rec.Embeds); err != nil {
		return nil, fmt.Errorf("unmarshalling document embeds: %w", err)
	}

	if len(rec.Embeds) == 0 {
		rec.Embeds = nil
	}

	return &rec, nil
}

// scanRevision scans a single row into a models.Revision.
func scanRevision(scan func(dest ...any) error) (*models.Revision, error) {
	var rev models.Revision
	var typ string
	var attrs, embeds []byte

	err := scan(
		&rev.Number,
		&typ,
		&rev.CreatedAt,
		&rev.Message,
		&rev.Tag,
		&rev.Author,
		&attrs,
		&embeds,
		&rev.Compressed,
	)
	if err != nil {
		return nil, err
	}

	rev.Type = models.RevisionType(typ)

	if err := json.Unmarshal(attrs, &rev.RevisedAttributes); err != nil {
		return nil, fmt.Errorf("unmarshalling revised attributes: %w", err)
	}

	if err := json.Unmarshal(embeds, &rev.RevisedEmbeds); err != nil {
		return nil, fmt.Errorf("unmarshalling revised embeds: %w", err)
	}

	return &rev, nil
}
