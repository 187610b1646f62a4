package api_test

import (
	"context"
	"errors"

	"github.com/persistorai/revisor/internal/models"
)

var errNotConfigured = errors.New("mock function not configured")

// mockDocumentService implements api.DocumentService for testing.
type mockDocumentService struct {
	listFn   func(ctx context.Context, typeFilter string, limit, offset int) ([]models.DocumentRecord, bool, error)
	getFn    func(ctx context.Context, id string) (*models.DocumentRecord, error)
	createFn func(ctx context.Context, req models.CreateDocumentRequest) (*models.DocumentRecord, error)
	reviseFn func(ctx context.Context, id string, req models.ReviseDocumentRequest) (*models.ReviseResult, error)
}

func (m *mockDocumentService) ListDocuments(ctx context.Context, typeFilter string, limit, offset int) ([]models.DocumentRecord, bool, error) {
	if m.listFn == nil {
		return nil, false, errNotConfigured
	}
	return m.listFn(ctx, typeFilter, limit, offset)
}

func (m *mockDocumentService) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	if m.getFn == nil {
		return nil, errNotConfigured
	}
	return m.getFn(ctx, id)
}

func (m *mockDocumentService) CreateDocument(ctx context.Context, req models.CreateDocumentRequest) (*models.DocumentRecord, error) {
	if m.createFn == nil {
		return nil, errNotConfigured
	}
	return m.createFn(ctx, req)
}

func (m *mockDocumentService) ReviseDocument(ctx context.Context, id string, req models.ReviseDocumentRequest) (*models.ReviseResult, error) {
	if m.reviseFn == nil {
		return nil, errNotConfigured
	}
	return m.reviseFn(ctx, id, req)
}

// mockHistoryService implements api.HistoryService for testing.
type mockHistoryService struct {
	listFn     func(ctx context.Context, id, author string) ([]models.Revision, error)
	getFn      func(ctx context.Context, id string, number int) (*models.Revision, error)
	authorsFn  func(ctx context.Context, id string) ([]string, error)
	fieldFn    func(ctx context.Context, id, field string) ([]models.FieldHistoryEntry, error)
	embeddedFn func(ctx context.Context, id, relation, itemID, field string) ([]models.FieldHistoryEntry, error)
	stateFn    func(ctx context.Context, id string, number int) (*models.DocumentState, error)
}

func (m *mockHistoryService) ListRevisions(ctx context.Context, id, author string) ([]models.Revision, error) {
	if m.listFn == nil {
		return nil, errNotConfigured
	}
	return m.listFn(ctx, id, author)
}

func (m *mockHistoryService) GetRevision(ctx context.Context, id string, number int) (*models.Revision, error) {
	if m.getFn == nil {
		return nil, errNotConfigured
	}
	return m.getFn(ctx, id, number)
}

func (m *mockHistoryService) Authors(ctx context.Context, id string) ([]string, error) {
	if m.authorsFn == nil {
		return nil, errNotConfigured
	}
	return m.authorsFn(ctx, id)
}

func (m *mockHistoryService) FieldHistory(ctx context.Context, id, field string) ([]models.FieldHistoryEntry, error) {
	if m.fieldFn == nil {
		return nil, errNotConfigured
	}
	return m.fieldFn(ctx, id, field)
}

func (m *mockHistoryService) EmbeddedFieldHistory(ctx context.Context, id, relation, itemID, field string) ([]models.FieldHistoryEntry, error) {
	if m.embeddedFn == nil {
		return nil, errNotConfigured
	}
	return m.embeddedFn(ctx, id, relation, itemID, field)
}

func (m *mockHistoryService) DocumentState(ctx context.Context, id string, number int) (*models.DocumentState, error) {
	if m.stateFn == nil {
		return nil, errNotConfigured
	}
	return m.stateFn(ctx, id, number)
}

// mockHealth implements api.HealthChecker.
type mockHealth struct {
	err error
}

func (m *mockHealth) HealthCheck(_ context.Context) error { return m.err }
