package revisable

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeItem struct {
	id      string
	values  map[string]any
	changes map[string]Change
}

func newFakeItem(id string, values map[string]any) *fakeItem {
	it := &fakeItem{id: id, values: map[string]any{}, changes: map[string]Change{}}
	for k, v := range values {
		it.set(k, v)
	}

	return it
}

func (i *fakeItem) ID() string                        { return i.id }
func (i *fakeItem) PendingChanges() map[string]Change { return i.changes }
func (i *fakeItem) CurrentValue(field string) any     { return i.values[field] }

func (i *fakeItem) set(field string, v any) {
	old := i.values[field]
	if prev, ok := i.changes[field]; ok {
		old = prev.Old
	}

	i.changes[field] = Change{Old: old, New: v}
	i.values[field] = v
}

type fakeRecord struct {
	schema   *Schema
	isNew    bool
	values   map[string]any
	changes  map[string]Change
	created  time.Time
	last     *int
	revs     *Revisions
	comments []*fakeItem
	saveErr  error
	saves    int
}

func newFakeRecord(s *Schema, values map[string]any) *fakeRecord {
	return &fakeRecord{
		schema:  s,
		isNew:   true,
		values:  values,
		changes: map[string]Change{},
		created: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		revs:    NewRevisions(),
	}
}

func (r *fakeRecord) Schema() *Schema                   { return r.schema }
func (r *fakeRecord) IsNew() bool                       { return r.isNew }
func (r *fakeRecord) PendingChanges() map[string]Change { return r.changes }
func (r *fakeRecord) CurrentValue(field string) any     { return r.values[field] }
func (r *fakeRecord) CreatedAt() time.Time              { return r.created }
func (r *fakeRecord) LastRevisionNumber() *int          { return r.last }
func (r *fakeRecord) SetLastRevisionNumber(n int)       { r.last = &n }
func (r *fakeRecord) Revisions() *Revisions             { return r.revs }

func (r *fakeRecord) Save(_ context.Context) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}

	r.isNew = false
	r.changes = map[string]Change{}
	for _, c := range r.comments {
		c.changes = map[string]Change{}
	}

	r.revs.MarkPersisted()

	return nil
}

func (r *fakeRecord) set(field string, v any) {
	old := r.values[field]
	if prev, ok := r.changes[field]; ok {
		old = prev.Old
	}

	r.changes[field] = Change{Old: old, New: v}
	r.values[field] = v
}

func (r *fakeRecord) comment(id string) *fakeItem {
	for _, c := range r.comments {
		if c.id == id {
			return c
		}
	}

	return nil
}

func commentItems(r *fakeRecord) []Item {
	items := make([]Item, len(r.comments))
	for i, c := range r.comments {
		items[i] = c
	}

	return items
}

// articleSchema tracks status and title, and text on comments.
func articleSchema() *Schema {
	s := NewSchema("article", nil)
	_ = s.DeclareFields("status", "title")
	_ = s.DeclareEmbedded("comments", Embed(commentItems), "text")

	reg := NewRegistry()
	if err := reg.Register(s); err != nil {
		panic(err)
	}

	return s
}

// persisted returns a saved article with the given values.
func persisted(values map[string]any) *fakeRecord {
	r := newFakeRecord(articleSchema(), values)
	r.isNew = false

	return r
}

func testEngine() *Engine {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return NewEngine(log)
}
