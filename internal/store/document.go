package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/models"
)

// documentColumns lists the columns selected for document queries.
const documentColumns = `id, type, fields, embeds, last_revision_number, created_at, updated_at`

// DocumentStore persists documents and their revision logs in PostgreSQL.
type DocumentStore struct {
	Base
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(base Base) *DocumentStore {
	return &DocumentStore{Base: base}
}

// SaveDocument writes the document row and appends the commit's new
// revisions in one transaction. Updates only apply when the stored
// last_revision_number still equals commit.ExpectedRevision.
func (s *DocumentStore) SaveDocument(ctx context.Context, commit models.DocumentCommit) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if commit.Insert {
		err = insertDocument(ctx, tx, commit.Document)
	} else {
		err = updateDocument(ctx, tx, commit.Document, commit.ExpectedRevision)
	}

	if err != nil {
		return err
	}

	if err := insertRevisions(ctx, tx, commit.Document.ID, commit.NewRevisions); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing document save: %w", err)
	}

	s.Log.WithFields(logrus.Fields{
		"document_id": commit.Document.ID,
		"insert":      commit.Insert,
		"revisions":   len(commit.NewRevisions),
	}).Debug("store.document_saved")

	return nil
}

func insertDocument(ctx context.Context, tx pgx.Tx, rec models.DocumentRecord) error {
	fields, embeds, err := marshalDocument(rec)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO revisable_documents (id, type, fields, embeds, last_revision_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Type, fields, embeds, rec.LastRevisionNumber, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateKey
		}

		return fmt.Errorf("inserting document: %w", err)
	}

	return nil
}

func updateDocument(ctx context.Context, tx pgx.Tx, rec models.DocumentRecord, expected *int) error {
	fields, embeds, err := marshalDocument(rec)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE revisable_documents
		SET fields = $2, embeds = $3, last_revision_number = $4, updated_at = $5
		WHERE id = $1 AND last_revision_number IS NOT DISTINCT FROM $6`,
		rec.ID, fields, embeds, rec.LastRevisionNumber, rec.UpdatedAt, expected,
	)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revisable_documents WHERE id = $1)`, rec.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking document existence: %w", err)
	}

	if !exists {
		return models.ErrDocumentNotFound
	}

	return fmt.Errorf("%w: document %s moved past revision %s", models.ErrRevisionConflict, rec.ID, formatNumber(expected))
}

// GetDocument returns a document and its full revision log in log order.
func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, []models.Revision, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("getting document: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	row := tx.QueryRow(ctx, "SELECT "+documentColumns+" FROM revisable_documents WHERE id = $1", id)

	rec, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, models.ErrDocumentNotFound
		}

		return nil, nil, fmt.Errorf("scanning document: %w", err)
	}

	revisions, err := selectRevisions(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("committing document query: %w", err)
	}

	return rec, revisions, nil
}

// ListDocuments returns documents with an optional type filter, most recently
// updated first, and whether more rows exist.
func (s *DocumentStore) ListDocuments(
	ctx context.Context,
	typeFilter string,
	limit, offset int,
) ([]models.DocumentRecord, bool, error) {
	limit, offset = clampPage(limit, offset)

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("listing documents: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	query := "SELECT " + documentColumns + " FROM revisable_documents"
	args := make([]any, 0, 3)
	argIdx := 1

	if typeFilter != "" {
		query += fmt.Sprintf(" WHERE type = $%d", argIdx)
		args = append(args, typeFilter)
		argIdx++
	}

	query += " ORDER BY updated_at DESC, id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit+1, offset)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]models.DocumentRecord, 0, limit+1)

	for rows.Next() {
		rec, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, false, fmt.Errorf("scanning document row: %w", err)
		}

		docs = append(docs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating document rows: %w", err)
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing document list query: %w", err)
	}

	return docs, hasMore, nil
}
