package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/document"
	"github.com/persistorai/revisor/internal/domain"
	"github.com/persistorai/revisor/internal/models"
	"github.com/persistorai/revisor/internal/revisable"
)

// Compile-time check: *HistoryService must satisfy domain.HistoryService.
var _ domain.HistoryService = (*HistoryService)(nil)

// HistoryService answers questions about a document's revision log.
type HistoryService struct {
	store   DocumentStore
	catalog *document.Catalog
	log     *logrus.Logger
}

// NewHistoryService creates a HistoryService.
func NewHistoryService(store DocumentStore, catalog *document.Catalog, log *logrus.Logger) *HistoryService {
	return &HistoryService{store: store, catalog: catalog, log: log}
}

// ListRevisions returns the revision log in append order, optionally only
// the revisions recorded by author.
func (s *HistoryService) ListRevisions(ctx context.Context, id, author string) ([]models.Revision, error) {
	s.log.WithFields(logrus.Fields{
		"document_id": id,
		"author":      author,
	}).Debug("history.list_revisions")

	doc, err := load(ctx, s.store, s.catalog, id)
	if err != nil {
		return nil, err
	}

	if author != "" {
		return nonNil(doc.Revisions().RevisedBy(author)), nil
	}

	return nonNil(doc.Revisions().List()), nil
}

// GetRevision returns one revision by number.
func (s *HistoryService) GetRevision(ctx context.Context, id string, number int) (*models.Revision, error) {
	doc, err := load(ctx, s.store, s.catalog, id)
	if err != nil {
		return nil, err
	}

	rev, ok := doc.Revisions().FindByNumber(number)
	if !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrRevisionNotFound, number)
	}

	return &rev, nil
}

// Authors returns the distinct revision authors in order of first appearance.
func (s *HistoryService) Authors(ctx context.Context, id string) ([]string, error) {
	doc, err := load(ctx, s.store, s.catalog, id)
	if err != nil {
		return nil, err
	}

	authors := doc.Revisions().Authors()
	if authors == nil {
		authors = []string{}
	}

	return authors, nil
}

// FieldHistory returns every recorded value of a top-level tracked field.
func (s *HistoryService) FieldHistory(ctx context.Context, id, field string) ([]models.FieldHistoryEntry, error) {
	s.log.WithFields(logrus.Fields{
		"document_id": id,
		"field":       field,
	}).Debug("history.field")

	doc, err := load(ctx, s.store, s.catalog, id)
	if err != nil {
		return nil, err
	}

	entries := []models.FieldHistoryEntry{}
	for info := range revisable.FieldHistory(doc, field) {
		entries = append(entries, info.Entry())
	}

	return entries, nil
}

// EmbeddedFieldHistory returns every recorded value of a field of one nested item.
func (s *HistoryService) EmbeddedFieldHistory(
	ctx context.Context, id, relation, itemID, field string,
) ([]models.FieldHistoryEntry, error) {
	s.log.WithFields(logrus.Fields{
		"document_id": id,
		"relation":    relation,
		"item_id":     itemID,
		"field":       field,
	}).Debug("history.embedded_field")

	doc, err := load(ctx, s.store, s.catalog, id)
	if err != nil {
		return nil, err
	}

	entries := []models.FieldHistoryEntry{}
	for info := range revisable.EmbeddedFieldHistory(doc, relation, itemID, field) {
		entries = append(entries, info.Entry())
	}

	return entries, nil
}

// DocumentState replays the revision log up to number.
func (s *HistoryService) DocumentState(ctx context.Context, id string, number int) (*models.DocumentState, error) {
	doc, err := load(ctx, s.store, s.catalog, id)
	if err != nil {
		return nil, err
	}

	state, err := doc.Revisions().Tree().StateAt(number)
	if err != nil {
		return nil, err
	}

	return &state, nil
}

func nonNil(revs []models.Revision) []models.Revision {
	if revs == nil {
		return []models.Revision{}
	}

	return revs
}
