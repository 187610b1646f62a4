// Package domain defines the canonical service interfaces shared across API
// layers (REST handlers, CLI). Consumers should depend on these interfaces
// rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/persistorai/revisor/internal/models"
)

// DocumentRepository is the persistence contract every storage backend meets.
type DocumentRepository interface {
	SaveDocument(ctx context.Context, commit models.DocumentCommit) error
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, []models.Revision, error)
	ListDocuments(ctx context.Context, typeFilter string, limit, offset int) ([]models.DocumentRecord, bool, error)
	HealthCheck(ctx context.Context) error
}

// DocumentService defines document lifecycle operations.
type DocumentService interface {
	ListDocuments(ctx context.Context, typeFilter string, limit, offset int) ([]models.DocumentRecord, bool, error)
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)
	CreateDocument(ctx context.Context, req models.CreateDocumentRequest) (*models.DocumentRecord, error)
	ReviseDocument(ctx context.Context, id string, req models.ReviseDocumentRequest) (*models.ReviseResult, error)
}

// HistoryService defines read-only queries over a document's revision log.
type HistoryService interface {
	ListRevisions(ctx context.Context, id, author string) ([]models.Revision, error)
	GetRevision(ctx context.Context, id string, number int) (*models.Revision, error)
	Authors(ctx context.Context, id string) ([]string, error)
	FieldHistory(ctx context.Context, id, field string) ([]models.FieldHistoryEntry, error)
	EmbeddedFieldHistory(ctx context.Context, id, relation, itemID, field string) ([]models.FieldHistoryEntry, error)
	DocumentState(ctx context.Context, id string, number int) (*models.DocumentState, error)
}

// EventPublisher receives notifications of committed document changes.
// Publish must not block.
type EventPublisher interface {
	Publish(eventType, documentID string, data any)
}
