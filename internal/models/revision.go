// Package models defines the persisted and wire types for revisable documents.
package models

import (
	"fmt"
	"time"
)

// RevisionType classifies why a revision was recorded.
type RevisionType string

// Revision types. Change revisions are produced only when tracked fields
// changed; snapshot and event revisions are always produced.
const (
	RevisionChange   RevisionType = "change"
	RevisionSnapshot RevisionType = "snapshot"
	RevisionEvent    RevisionType = "event"
)

// Valid reports whether t is one of the known revision types.
func (t RevisionType) Valid() bool {
	switch t {
	case RevisionChange, RevisionSnapshot, RevisionEvent:
		return true
	default:
		return false
	}
}

// Forced reports whether a revision of this type is recorded even when no
// tracked field changed.
func (t RevisionType) Forced() bool {
	return t != RevisionChange
}

// ParseRevisionType converts s into a RevisionType. An empty string yields
// RevisionChange.
func ParseRevisionType(s string) (RevisionType, error) {
	if s == "" {
		return RevisionChange, nil
	}

	t := RevisionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRevisionType, s)
	}

	return t, nil
}

// BaseRevisionNumber is reserved for the initial snapshot of a document.
const BaseRevisionNumber = 0

// RevisedEmbeds maps relation -> item id -> field -> value.
type RevisedEmbeds map[string]map[string]map[string]any

// Item returns the recorded values for one embedded item, if present.
func (e RevisedEmbeds) Item(relation, itemID string) (map[string]any, bool) {
	items, ok := e[relation]
	if !ok {
		return nil, false
	}

	values, ok := items[itemID]

	return values, ok
}

// Revision is an immutable record of what changed on a document at one commit.
type Revision struct {
	Number            int            `json:"number"`
	Type              RevisionType   `json:"type"`
	CreatedAt         time.Time      `json:"created_at"`
	Message           *string        `json:"message,omitempty"`
	Tag               *string        `json:"tag,omitempty"`
	Author            *string        `json:"author,omitempty"`
	RevisedAttributes map[string]any `json:"revised_attributes"`
	RevisedEmbeds     RevisedEmbeds  `json:"revised_embeds"`
	Compressed        bool           `json:"compressed"`
}

// IsBase reports whether r is the base revision.
func (r *Revision) IsBase() bool {
	return r.Number == BaseRevisionNumber
}

// SetCompressed marks the payload as final and eligible for storage-side compaction.
func (r *Revision) SetCompressed() {
	r.Compressed = true
}

// AuthoredBy reports whether author recorded this revision.
func (r *Revision) AuthoredBy(author string) bool {
	return r.Author != nil && *r.Author == author
}

// StringPtr returns nil for an empty string and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
