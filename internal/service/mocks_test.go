package service

import (
	"context"
	"sync"

	"github.com/persistorai/revisor/internal/models"
)

// mockDocumentStore records calls and returns configured responses.
type mockDocumentStore struct {
	mu    sync.Mutex
	calls []string

	saveDocument  func(ctx context.Context, commit models.DocumentCommit) error
	getDocument   func(ctx context.Context, id string) (*models.DocumentRecord, []models.Revision, error)
	listDocuments func(ctx context.Context, typeFilter string, limit, offset int) ([]models.DocumentRecord, bool, error)
}

func (m *mockDocumentStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockDocumentStore) SaveDocument(ctx context.Context, commit models.DocumentCommit) error {
	m.record("SaveDocument")
	return m.saveDocument(ctx, commit)
}

func (m *mockDocumentStore) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, []models.Revision, error) {
	m.record("GetDocument")
	return m.getDocument(ctx, id)
}

func (m *mockDocumentStore) ListDocuments(ctx context.Context, typeFilter string, limit, offset int) ([]models.DocumentRecord, bool, error) {
	m.record("ListDocuments")
	return m.listDocuments(ctx, typeFilter, limit, offset)
}

func (m *mockDocumentStore) HealthCheck(_ context.Context) error {
	m.record("HealthCheck")
	return nil
}

// memoryStore returns a mock whose functions keep documents in a map and
// enforce the expected-revision guard, plus the list of received commits.
func memoryStore() (*mockDocumentStore, *[]models.DocumentCommit) {
	docs := map[string]models.DocumentRecord{}
	revs := map[string][]models.Revision{}
	commits := &[]models.DocumentCommit{}

	m := &mockDocumentStore{}

	m.saveDocument = func(_ context.Context, commit models.DocumentCommit) error {
		id := commit.Document.ID
		stored, exists := docs[id]

		switch {
		case commit.Insert && exists:
			return models.ErrDuplicateKey
		case !commit.Insert && !exists:
			return models.ErrDocumentNotFound
		case !commit.Insert && !sameNumber(stored.LastRevisionNumber, commit.ExpectedRevision):
			return models.ErrRevisionConflict
		}

		docs[id] = commit.Document
		revs[id] = append(revs[id], commit.NewRevisions...)
		*commits = append(*commits, commit)

		return nil
	}

	m.getDocument = func(_ context.Context, id string) (*models.DocumentRecord, []models.Revision, error) {
		rec, ok := docs[id]
		if !ok {
			return nil, nil, models.ErrDocumentNotFound
		}

		return &rec, append([]models.Revision(nil), revs[id]...), nil
	}

	m.listDocuments = func(_ context.Context, _ string, _, _ int) ([]models.DocumentRecord, bool, error) {
		out := make([]models.DocumentRecord, 0, len(docs))
		for _, d := range docs {
			out = append(out, d)
		}

		return out, false, nil
	}

	return m, commits
}

func sameNumber(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
