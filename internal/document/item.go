package document

import (
	"slices"

	"github.com/persistorai/revisor/internal/models"
	"github.com/persistorai/revisor/internal/revisable"
)

var _ revisable.Item = (*Item)(nil)

// Item is one element of a nested collection with its own change tracking.
type Item struct {
	id     string
	fields map[string]any
	saved  map[string]any
}

// ID returns the item id.
func (i *Item) ID() string { return i.id }

// Set assigns a field value.
func (i *Item) Set(field string, v any) { i.fields[field] = v }

// Get returns a field value.
func (i *Item) Get(field string) (any, bool) {
	v, ok := i.fields[field]
	return v, ok
}

// CurrentValue returns a field value, or nil.
func (i *Item) CurrentValue(field string) any { return i.fields[field] }

// PendingChanges returns the changes since the item was last saved. Every
// field of a never-saved item is pending.
func (i *Item) PendingChanges() map[string]revisable.Change {
	return diffValues(i.saved, i.fields)
}

func (i *Item) markSaved() { i.saved = cloneValues(i.fields) }

// Collection is a named, ordered nested collection of items.
type Collection struct {
	relation string
	items    []*Item
}

// Relation returns the collection name.
func (c *Collection) Relation() string { return c.relation }

// Len returns the number of items.
func (c *Collection) Len() int { return len(c.items) }

// Items returns the items in insertion order.
func (c *Collection) Items() []*Item { return slices.Clone(c.items) }

// Get returns the item with id.
func (c *Collection) Get(id string) (*Item, bool) {
	for _, it := range c.items {
		if it.id == id {
			return it, true
		}
	}

	return nil, false
}

// Upsert sets fields on the item with id, adding a new item if needed.
func (c *Collection) Upsert(id string, fields map[string]any) *Item {
	it, ok := c.Get(id)
	if !ok {
		it = &Item{id: id, fields: map[string]any{}, saved: map[string]any{}}
		c.items = append(c.items, it)
	}

	for k, v := range fields {
		it.Set(k, v)
	}

	return it
}

func (c *Collection) revisableItems() []revisable.Item {
	out := make([]revisable.Item, len(c.items))
	for i, it := range c.items {
		out[i] = it
	}

	return out
}

func (c *Collection) records() []models.EmbeddedItem {
	out := make([]models.EmbeddedItem, len(c.items))
	for i, it := range c.items {
		out[i] = models.EmbeddedItem{ID: it.id, Fields: cloneValues(it.fields)}
	}

	return out
}

func (c *Collection) markSaved() {
	for _, it := range c.items {
		it.markSaved()
	}
}
