package client

import (
	"context"
	"net/url"
	"strconv"
)

// DocumentService handles document creation and revision.
type DocumentService struct {
	c *Client
}

// documentListResponse wraps the paginated document list response.
type documentListResponse struct {
	Documents []Document `json:"documents"`
	HasMore   bool       `json:"has_more"`
}

// List returns documents, most recently updated first.
func (s *DocumentService) List(ctx context.Context, opts *ListOptions) ([]Document, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.Type != "" {
			params.Set("type", opts.Type)
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp documentListResponse
	if err := s.c.get(ctx, "/api/v1/documents", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Documents, resp.HasMore, nil
}

// Get returns a single document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := s.c.get(ctx, documentPath(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create creates a new document and records its base revision.
func (s *DocumentService) Create(ctx context.Context, req *CreateDocumentRequest) (*Document, error) {
	var doc Document
	if err := s.c.post(ctx, "/api/v1/documents", req, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Revise applies req to the document and records a revision if anything
// tracked changed or a forced revision type was requested.
func (s *DocumentService) Revise(ctx context.Context, id string, req *ReviseRequest) (*ReviseResult, error) {
	var res ReviseResult
	if err := s.c.post(ctx, documentPath(id)+"/revise", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
