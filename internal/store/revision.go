package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/persistorai/revisor/internal/models"
)

// revisionColumns lists the columns selected for revision queries.
const revisionColumns = `number, type, created_at, message, tag, author,
	revised_attributes, revised_embeds, compressed`

const revisionInsertArgs = 10

// insertRevisions appends revisions with a single multi-row INSERT. A
// duplicate (document_id, number) means another writer took the number.
func insertRevisions(ctx context.Context, tx pgx.Tx, documentID string, revisions []models.Revision) error {
	if len(revisions) == 0 {
		return nil
	}

	valueParts := make([]string, 0, len(revisions))
	args := make([]any, 0, len(revisions)*revisionInsertArgs)

	for i, rev := range revisions {
		attrs, err := json.Marshal(nonNilAttrs(rev.RevisedAttributes))
		if err != nil {
			return fmt.Errorf("marshalling revised attributes of revision %d: %w", rev.Number, err)
		}

		embeds, err := json.Marshal(nonNilEmbeds(rev.RevisedEmbeds))
		if err != nil {
			return fmt.Errorf("marshalling revised embeds of revision %d: %w", rev.Number, err)
		}

		base := i*revisionInsertArgs + 1
		placeholders := make([]string, revisionInsertArgs)

		for j := range placeholders {
			placeholders[j] = "$" + strconv.Itoa(base+j)
		}

		valueParts = append(valueParts, "("+strings.Join(placeholders, ", ")+")")
		args = append(args,
			documentID, rev.Number, string(rev.Type), rev.CreatedAt,
			rev.Message, rev.Tag, rev.Author, attrs, embeds, rev.Compressed,
		)
	}

	sql := `INSERT INTO document_revisions (document_id, number, type, created_at,
		message, tag, author, revised_attributes, revised_embeds, compressed)
		VALUES ` + strings.Join(valueParts, ", ")

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: duplicate revision number on document %s", models.ErrRevisionConflict, documentID)
		}

		return fmt.Errorf("inserting revisions: %w", err)
	}

	return nil
}

// selectRevisions loads a document's revision log in append order.
func selectRevisions(ctx context.Context, tx pgx.Tx, documentID string) ([]models.Revision, error) {
	rows, err := tx.Query(ctx,
		"SELECT "+revisionColumns+" FROM document_revisions WHERE document_id = $1 ORDER BY seq",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying revisions: %w", err)
	}
	defer rows.Close()

	var revisions []models.Revision

	for rows.Next() {
		rev, err := scanRevision(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning revision row: %w", err)
		}

		revisions = append(revisions, *rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating revision rows: %w", err)
	}

	return revisions, nil
}

func nonNilAttrs(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

func nonNilEmbeds(e models.RevisedEmbeds) models.RevisedEmbeds {
	if e == nil {
		return models.RevisedEmbeds{}
	}

	return e
}

func formatNumber(n *int) string {
	if n == nil {
		return "none"
	}

	return strconv.Itoa(*n)
}
