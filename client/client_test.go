package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer creates a test server that routes to the given handler map.
// Keys are "METHOD /path", values are handler funcs.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, New(srv.URL)
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func strPtr(s string) *string { return &s }

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, HealthResponse{Status: "ok", Version: "0.3.0", Backend: "badger", Storage: "connected"})
		},
	})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if resp.Status != "ok" || resp.Backend != "badger" {
		t.Errorf("got %+v", resp)
	}
}

func TestHealthUnavailable(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 503, map[string]string{"status": "degraded"})
		},
	})
	_, err := c.Health(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if e, ok := err.(*APIError); !ok || e.StatusCode != 503 || e.Code != "unknown" {
		t.Errorf("got %#v", err)
	}
}

func TestDocuments(t *testing.T) {
	var gotQuery string
	var gotCreate CreateDocumentRequest
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/documents": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			jsonResponse(w, 200, map[string]any{"documents": []Document{{ID: "a1", Type: "article"}}, "has_more": true})
		},
		"POST /api/v1/documents": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&gotCreate) //nolint:errcheck
			n := 0
			jsonResponse(w, 201, Document{ID: gotCreate.ID, Type: gotCreate.Type, Fields: gotCreate.Fields, LastRevisionNumber: &n})
		},
		"GET /api/v1/documents/a1": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, Document{ID: "a1", Type: "article", Fields: map[string]any{"status": "draft"}})
		},
	})
	ctx := context.Background()

	docs, hasMore, err := c.Documents.List(ctx, &ListOptions{Type: "article", Limit: 10})
	if err != nil || len(docs) != 1 || !hasMore {
		t.Fatalf("List: err=%v, docs=%v, hasMore=%v", err, docs, hasMore)
	}
	if gotQuery != "limit=10&type=article" {
		t.Errorf("query: got %q", gotQuery)
	}

	doc, err := c.Documents.Create(ctx, &CreateDocumentRequest{
		ID: "a1", Type: "article", Fields: map[string]any{"status": "draft"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.LastRevisionNumber == nil || *doc.LastRevisionNumber != 0 {
		t.Errorf("base revision: got %v", doc.LastRevisionNumber)
	}
	if gotCreate.Fields["status"] != "draft" {
		t.Errorf("request fields: got %v", gotCreate.Fields)
	}

	doc, err = c.Documents.Get(ctx, "a1")
	if err != nil || doc.Fields["status"] != "draft" {
		t.Fatalf("Get: err=%v, doc=%+v", err, doc)
	}
}

func TestRevise(t *testing.T) {
	var got ReviseRequest
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/documents/a1/revise": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
			jsonResponse(w, 201, ReviseResult{
				Revision: &Revision{
					Number:            1,
					Type:              RevisionChange,
					Author:            strPtr("ana"),
					RevisedAttributes: map[string]any{"status": "published"},
				},
				Committed: true,
				Document:  &Document{ID: "a1"},
			})
		},
	})

	res, err := c.Documents.Revise(context.Background(), "a1", &ReviseRequest{
		Fields: map[string]any{"status": "published"},
		Author: "ana",
		Soft:   true,
	})
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if !res.Committed || res.Revision == nil || res.Revision.Number != 1 {
		t.Fatalf("got %+v", res)
	}
	if res.Revision.RevisedAttributes["status"] != "published" {
		t.Errorf("revised attributes: got %v", res.Revision.RevisedAttributes)
	}
	if got.Author != "ana" || !got.Soft {
		t.Errorf("request: got %+v", got)
	}
}

func TestHistory(t *testing.T) {
	var gotAuthor string
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/documents/a1/revisions": func(w http.ResponseWriter, r *http.Request) {
			gotAuthor = r.URL.Query().Get("author")
			jsonResponse(w, 200, map[string]any{"revisions": []Revision{{Number: 0}, {Number: 1}}})
		},
		"GET /api/v1/documents/a1/revisions/1": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, Revision{Number: 1, Type: RevisionSnapshot})
		},
		"GET /api/v1/documents/a1/revisions/1/state": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, DocumentState{Number: 1, Fields: map[string]any{"status": "review"}})
		},
		"GET /api/v1/documents/a1/authors": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"authors": []string{"ana", "bo"}})
		},
		"GET /api/v1/documents/a1/history/status": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"history": []FieldHistoryEntry{
				{Number: 0, Field: "status", Value: "draft"},
				{Number: 1, Field: "status", Value: "review"},
			}})
		},
		"GET /api/v1/documents/a1/embeds/comments/c1/history/text": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"history": []FieldHistoryEntry{
				{Number: 2, Field: "text", Relation: "comments", ItemID: "c1", Value: "hi"},
			}})
		},
	})
	ctx := context.Background()

	revs, err := c.History.Revisions(ctx, "a1", "ana")
	if err != nil || len(revs) != 2 {
		t.Fatalf("Revisions: err=%v, revs=%v", err, revs)
	}
	if gotAuthor != "ana" {
		t.Errorf("author filter: got %q", gotAuthor)
	}

	rev, err := c.History.Revision(ctx, "a1", 1)
	if err != nil || rev.Type != RevisionSnapshot {
		t.Fatalf("Revision: err=%v, rev=%+v", err, rev)
	}

	state, err := c.History.State(ctx, "a1", 1)
	if err != nil || state.Fields["status"] != "review" {
		t.Fatalf("State: err=%v, state=%+v", err, state)
	}

	authors, err := c.History.Authors(ctx, "a1")
	if err != nil || len(authors) != 2 {
		t.Fatalf("Authors: err=%v, authors=%v", err, authors)
	}

	entries, err := c.History.Field(ctx, "a1", "status")
	if err != nil || len(entries) != 2 || entries[1].Value != "review" {
		t.Fatalf("Field: err=%v, entries=%+v", err, entries)
	}

	entries, err = c.History.EmbeddedField(ctx, "a1", "comments", "c1", "text")
	if err != nil || len(entries) != 1 || entries[0].ItemID != "c1" {
		t.Fatalf("EmbeddedField: err=%v, entries=%+v", err, entries)
	}
}

func TestAPIError(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/documents/missing": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 404, map[string]string{"code": "not_found", "message": "document not found", "request_id": "r1"})
		},
		"POST /api/v1/documents/a1/revise": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 409, map[string]string{"code": "conflict", "message": "revision conflict"})
		},
		"POST /api/v1/documents": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 400, map[string]string{"code": "invalid_request", "message": "type is required"})
		},
	})
	ctx := context.Background()

	_, err := c.Documents.Get(ctx, "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got: %v", err)
	}
	if want := "revisor: 404 not_found: document not found (request_id=r1)"; err == nil || err.Error() != want {
		t.Errorf("message: got %v, want %q", err, want)
	}

	_, err = c.Documents.Revise(ctx, "a1", &ReviseRequest{})
	if !IsConflict(err) {
		t.Errorf("expected conflict, got: %v", err)
	}

	_, err = c.Documents.Create(ctx, &CreateDocumentRequest{})
	if !IsInvalid(err) || IsConflict(err) {
		t.Errorf("expected invalid, got: %v", err)
	}
}
