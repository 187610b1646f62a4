package revisable

import (
	"context"
	"time"
)

// Change is a pending old/new value pair recorded by a record's mutation layer.
type Change struct {
	Old any
	New any
}

// Item is one element of a nested collection.
type Item interface {
	ID() string
	PendingChanges() map[string]Change
	CurrentValue(field string) any
}

// Record is the mutable entity whose history is tracked. Implementations own
// their change tracking and persistence; the engine only reads pending
// changes, maintains the revision counter and appends revisions.
type Record interface {
	Schema() *Schema
	IsNew() bool
	PendingChanges() map[string]Change
	CurrentValue(field string) any
	CreatedAt() time.Time
	LastRevisionNumber() *int
	SetLastRevisionNumber(n int)
	Revisions() *Revisions

	// Save persists the record together with any revisions appended since
	// the previous successful save.
	Save(ctx context.Context) error
}
