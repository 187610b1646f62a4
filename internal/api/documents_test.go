package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/revisor/internal/api"
	"github.com/persistorai/revisor/internal/models"
)

func newDocumentRouter(docs *mockDocumentService) http.Handler {
	return api.NewRouter(&api.RouterDeps{
		Log:       testLogger(),
		Storage:   &mockHealth{},
		Backend:   "badger",
		Documents: docs,
		History:   &mockHistoryService{},
		Version:   "test",
	})
}

func TestCreateDocument(t *testing.T) {
	docs := &mockDocumentService{
		createFn: func(_ context.Context, req models.CreateDocumentRequest) (*models.DocumentRecord, error) {
			return &models.DocumentRecord{ID: req.ID, Type: req.Type, Fields: req.Fields}, nil
		},
	}

	w := doRequest(newDocumentRouter(docs), http.MethodPost, "/api/v1/documents",
		`{"id":"a1","type":"article","fields":{"status":"draft"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec models.DocumentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "a1", rec.ID)
	assert.Equal(t, "draft", rec.Fields["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateDocument_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		svcErr   error
		wantCode int
		wantBody string
	}{
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest, wantBody: "invalid_request"},
		{name: "missing type", body: `{"id":"a1"}`, wantCode: http.StatusBadRequest, wantBody: "validation_error"},
		{name: "control character in id", body: `{"id":"a\u0000evil","type":"article"}`, wantCode: http.StatusBadRequest, wantBody: "validation_error"},
		{name: "unknown schema", body: `{"type":"memo"}`, svcErr: fmt.Errorf("%w: memo", models.ErrUnknownSchema), wantCode: http.StatusBadRequest, wantBody: "unknown schema"},
		{name: "duplicate", body: `{"id":"a1","type":"article"}`, svcErr: models.ErrDuplicateKey, wantCode: http.StatusConflict, wantBody: "conflict"},
		{name: "internal", body: `{"type":"article"}`, svcErr: fmt.Errorf("db exploded"), wantCode: http.StatusInternalServerError, wantBody: "internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			docs := &mockDocumentService{
				createFn: func(_ context.Context, _ models.CreateDocumentRequest) (*models.DocumentRecord, error) {
					return nil, tc.svcErr
				},
			}

			w := doRequest(newDocumentRouter(docs), http.MethodPost, "/api/v1/documents", tc.body)
			assert.Equal(t, tc.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
			assert.NotContains(t, w.Body.String(), "db exploded")
		})
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	docs := &mockDocumentService{
		getFn: func(_ context.Context, _ string) (*models.DocumentRecord, error) {
			return nil, models.ErrDocumentNotFound
		},
	}

	w := doRequest(newDocumentRouter(docs), http.MethodGet, "/api/v1/documents/a1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"request_id"`)
}

func TestListDocuments(t *testing.T) {
	var gotType string
	var gotLimit int

	docs := &mockDocumentService{
		listFn: func(_ context.Context, typeFilter string, limit, _ int) ([]models.DocumentRecord, bool, error) {
			gotType, gotLimit = typeFilter, limit
			return []models.DocumentRecord{{ID: "a1", Type: "article"}}, true, nil
		},
	}

	w := doRequest(newDocumentRouter(docs), http.MethodGet, "/api/v1/documents?type=article&limit=5000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "article", gotType)
	assert.Equal(t, 1000, gotLimit)
	assert.Contains(t, w.Body.String(), `"has_more":true`)
}

func TestReviseDocument(t *testing.T) {
	var got models.ReviseDocumentRequest

	docs := &mockDocumentService{
		reviseFn: func(_ context.Context, id string, req models.ReviseDocumentRequest) (*models.ReviseResult, error) {
			got = req
			author := req.Author

			return &models.ReviseResult{
				Revision: &models.Revision{
					Number:            1,
					Type:              models.RevisionChange,
					Author:            &author,
					RevisedAttributes: map[string]any{"status": "published"},
				},
				Committed: true,
				Document:  &models.DocumentRecord{ID: id, Type: "article"},
			}, nil
		},
	}

	w := doRequest(newDocumentRouter(docs), http.MethodPost, "/api/v1/documents/a1/revise",
		`{"fields":{"status":"published"},"author":"alice","message":"ship"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "alice", got.Author)
	assert.Equal(t, "ship", got.Message)

	var res models.ReviseResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Committed)
	assert.Equal(t, 1, res.Revision.Number)
}

func TestReviseDocument_NoRevision(t *testing.T) {
	docs := &mockDocumentService{
		reviseFn: func(_ context.Context, id string, _ models.ReviseDocumentRequest) (*models.ReviseResult, error) {
			return &models.ReviseResult{Committed: true, Document: &models.DocumentRecord{ID: id}}, nil
		},
	}

	w := doRequest(newDocumentRouter(docs), http.MethodPost, "/api/v1/documents/a1/revise", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"revision":null`)
}

func TestReviseDocument_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		svcErr   error
		wantCode int
	}{
		{name: "invalid type", body: `{"type":"bogus"}`, wantCode: http.StatusBadRequest},
		{name: "conflict", body: `{}`, svcErr: fmt.Errorf("%w: %w", models.ErrCommitFailed, models.ErrRevisionConflict), wantCode: http.StatusConflict},
		{name: "commit failed", body: `{}`, svcErr: fmt.Errorf("%w: disk full", models.ErrCommitFailed), wantCode: http.StatusInternalServerError},
		{name: "not found", body: `{}`, svcErr: models.ErrDocumentNotFound, wantCode: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			docs := &mockDocumentService{
				reviseFn: func(_ context.Context, _ string, _ models.ReviseDocumentRequest) (*models.ReviseResult, error) {
					return nil, tc.svcErr
				},
			}

			w := doRequest(newDocumentRouter(docs), http.MethodPost, "/api/v1/documents/a1/revise", tc.body)
			assert.Equal(t, tc.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := doRequest(newDocumentRouter(&mockDocumentService{}), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "revisor_")
}
