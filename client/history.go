package client

import (
	"context"
	"net/url"
	"strconv"
)

// HistoryService reads revision logs and field histories.
type HistoryService struct {
	c *Client
}

// Revisions returns the document's revision log in order. A non-empty
// author restricts the log to revisions recorded by that user.
func (s *HistoryService) Revisions(ctx context.Context, id, author string) ([]Revision, error) {
	params := url.Values{}
	if author != "" {
		params.Set("author", author)
	}
	var resp struct {
		Revisions []Revision `json:"revisions"`
	}
	if err := s.c.get(ctx, documentPath(id)+"/revisions", params, &resp); err != nil {
		return nil, err
	}
	return resp.Revisions, nil
}

// Revision returns one revision by number.
func (s *HistoryService) Revision(ctx context.Context, id string, number int) (*Revision, error) {
	var rev Revision
	if err := s.c.get(ctx, documentPath(id)+"/revisions/"+strconv.Itoa(number), nil, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// State returns the document's tracked values as of revision number.
func (s *HistoryService) State(ctx context.Context, id string, number int) (*DocumentState, error) {
	var state DocumentState
	path := documentPath(id) + "/revisions/" + strconv.Itoa(number) + "/state"
	if err := s.c.get(ctx, path, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Authors returns the distinct users who recorded revisions of the document.
func (s *HistoryService) Authors(ctx context.Context, id string) ([]string, error) {
	var resp struct {
		Authors []string `json:"authors"`
	}
	if err := s.c.get(ctx, documentPath(id)+"/authors", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Authors, nil
}

// Field returns every recorded value of a top-level field.
func (s *HistoryService) Field(ctx context.Context, id, field string) ([]FieldHistoryEntry, error) {
	return s.history(ctx, documentPath(id)+"/history/"+url.PathEscape(field))
}

// EmbeddedField returns every recorded value of field on one embedded item.
func (s *HistoryService) EmbeddedField(ctx context.Context, id, relation, itemID, field string) ([]FieldHistoryEntry, error) {
	path := documentPath(id) + "/embeds/" + url.PathEscape(relation) + "/" + url.PathEscape(itemID) +
		"/history/" + url.PathEscape(field)
	return s.history(ctx, path)
}

func (s *HistoryService) history(ctx context.Context, path string) ([]FieldHistoryEntry, error) {
	var resp struct {
		History []FieldHistoryEntry `json:"history"`
	}
	if err := s.c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}
