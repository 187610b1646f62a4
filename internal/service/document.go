// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/document"
	"github.com/persistorai/revisor/internal/domain"
	"github.com/persistorai/revisor/internal/metrics"
	"github.com/persistorai/revisor/internal/models"
	"github.com/persistorai/revisor/internal/revisable"
)

// DocumentStore is the data-access interface the services depend on.
type DocumentStore = domain.DocumentRepository

// Compile-time check: *DocumentService must satisfy domain.DocumentService.
var _ domain.DocumentService = (*DocumentService)(nil)

// DocumentService creates documents and records revisions of them.
type DocumentService struct {
	store   DocumentStore
	catalog *document.Catalog
	engine  *revisable.Engine
	events  domain.EventPublisher
	log     *logrus.Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(store DocumentStore, catalog *document.Catalog, engine *revisable.Engine, log *logrus.Logger) *DocumentService {
	return &DocumentService{store: store, catalog: catalog, engine: engine, log: log}
}

// Event types published after a successful save.
const (
	EventDocumentCreated = "document.created"
	EventRevisionCreated = "revision.created"
)

// SetPublisher routes committed changes to p. A nil publisher disables events.
func (s *DocumentService) SetPublisher(p domain.EventPublisher) {
	s.events = p
}

func (s *DocumentService) publish(eventType, documentID string, data any) {
	if s.events != nil {
		s.events.Publish(eventType, documentID, data)
	}
}

// load restores a document and its revision log from the store.
func load(ctx context.Context, store DocumentStore, catalog *document.Catalog, id string) (*document.Document, error) {
	rec, revisions, err := store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := catalog.Restore(*rec, revisions, &countingSaver{store: store})
	if err != nil {
		return nil, fmt.Errorf("restoring document %s: %w", id, err)
	}

	return doc, nil
}

// countingSaver forwards saves to the store and records persistence metrics.
type countingSaver struct {
	store DocumentStore
}

func (s *countingSaver) SaveDocument(ctx context.Context, commit models.DocumentCommit) error {
	err := s.store.SaveDocument(ctx, commit)
	if errors.Is(err, models.ErrRevisionConflict) {
		metrics.RevisionConflicts.Inc()
	}

	if err == nil {
		metrics.RevisionsPerSave.Observe(float64(len(commit.NewRevisions)))
	}

	return err
}

// ListDocuments returns a paginated list of documents (pass-through).
func (s *DocumentService) ListDocuments(
	ctx context.Context, typeFilter string, limit, offset int,
) ([]models.DocumentRecord, bool, error) {
	return s.store.ListDocuments(ctx, typeFilter, limit, offset)
}

// GetDocument returns the current state of a document.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	rec, _, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateDocument saves a new document. New documents never produce a
// revision; the base revision is taken on the first tracked change.
func (s *DocumentService) CreateDocument(
	ctx context.Context, req models.CreateDocumentRequest,
) (*models.DocumentRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.catalog.New(req.Type, req.ID, &countingSaver{store: s.store})
	if err != nil {
		return nil, err
	}

	apply(doc, req.Fields, req.Embeds)

	if err := doc.Save(ctx); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"document_id": doc.ID(),
		"type":        doc.Type(),
	}).Info("document.created")

	rec := doc.Record()
	s.publish(EventDocumentCreated, rec.ID, rec)

	return &rec, nil
}

// ReviseDocument applies the requested mutations to a stored document,
// records a revision if one qualifies and commits. With req.Soft a failed
// commit is reported in the result instead of returned.
func (s *DocumentService) ReviseDocument(
	ctx context.Context, id string, req models.ReviseDocumentRequest,
) (*models.ReviseResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	typ, err := models.ParseRevisionType(req.Type)
	if err != nil {
		return nil, err
	}

	doc, err := load(ctx, s.store, s.catalog, id)
	if err != nil {
		return nil, err
	}

	apply(doc, req.Fields, req.Embeds)

	opts := revisable.Options{
		Message: req.Message,
		Tag:     req.Tag,
		Author:  req.Author,
		Type:    typ,
	}
	if req.CreatedAt != nil {
		opts.CreatedAt = req.CreatedAt.UTC()
	}

	result := &models.ReviseResult{}

	if req.Soft {
		res, err := s.engine.Revise(ctx, doc, opts)
		if err != nil {
			return nil, err
		}

		result.Revision = res.Revision
		result.Committed = res.Committed

		if res.CommitErr != nil {
			metrics.CommitFailures.Inc()
		}
	} else {
		rev, err := s.engine.ReviseStrict(ctx, doc, opts)
		if err != nil {
			if errors.Is(err, models.ErrCommitFailed) {
				metrics.CommitFailures.Inc()
			}

			return nil, err
		}

		result.Revision = rev
		result.Committed = true
	}

	if result.Revision != nil && result.Committed {
		metrics.RevisionsCreated.WithLabelValues(string(result.Revision.Type)).Inc()
		s.publish(EventRevisionCreated, id, result.Revision)
	}

	rec := doc.Record()
	result.Document = &rec

	fields := logrus.Fields{
		"document_id": id,
		"committed":   result.Committed,
		"soft":        req.Soft,
	}
	if result.Revision != nil {
		fields["number"] = result.Revision.Number
		fields["type"] = result.Revision.Type
	}

	s.log.WithFields(fields).Info("document.revise")

	return result, nil
}

// apply sets top-level fields and upserts nested items, in a stable order.
func apply(doc *document.Document, fields map[string]any, embeds map[string][]models.EmbeddedItem) {
	for _, k := range sortedKeys(fields) {
		doc.Set(k, fields[k])
	}

	relations := make([]string, 0, len(embeds))
	for r := range embeds {
		relations = append(relations, r)
	}

	sort.Strings(relations)

	for _, relation := range relations {
		coll := doc.Collection(relation)
		for _, item := range embeds[relation] {
			coll.Upsert(item.ID, item.Fields)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
