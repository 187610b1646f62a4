// Package document provides a map-backed revisable record: top-level fields
// and named nested collections with pending-change tracking, persisted
// through a Saver.
package document

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/persistorai/revisor/internal/models"
	"github.com/persistorai/revisor/internal/revisable"
)

// Saver persists a document together with its new revisions.
type Saver interface {
	SaveDocument(ctx context.Context, commit models.DocumentCommit) error
}

var errNoSaver = errors.New("document has no saver")

var _ revisable.Record = (*Document)(nil)

// Document is a revisable record of a registered Type.
type Document struct {
	typ       *Type
	id        string
	fields    map[string]any
	saved     map[string]any
	embeds    map[string]*Collection
	relations []string
	createdAt time.Time
	updatedAt time.Time
	persisted bool
	last      *int
	savedLast *int
	revisions *revisable.Revisions
	saver     Saver
}

func newDocument(typ *Type, id string, saver Saver) *Document {
	return &Document{
		typ:       typ,
		id:        id,
		fields:    map[string]any{},
		saved:     map[string]any{},
		embeds:    map[string]*Collection{},
		revisions: revisable.NewRevisions(),
		saver:     saver,
	}
}

// ID returns the document id.
func (d *Document) ID() string { return d.id }

// Type returns the document type name.
func (d *Document) Type() string { return d.typ.schema.Name() }

// Schema returns the revisable schema of the document's type.
func (d *Document) Schema() *revisable.Schema { return d.typ.schema }

// IsNew reports whether the document has never been saved.
func (d *Document) IsNew() bool { return !d.persisted }

// CreatedAt returns when the document was created.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// Revisions returns the document's revision log.
func (d *Document) Revisions() *revisable.Revisions { return d.revisions }

// LastRevisionNumber returns the highest revision number, or nil.
func (d *Document) LastRevisionNumber() *int { return d.last }

// SetLastRevisionNumber updates the revision counter.
func (d *Document) SetLastRevisionNumber(n int) { d.last = &n }

// Set assigns a field. Blank values of fields declared blank-to-nil are
// stored as nil.
func (d *Document) Set(field string, v any) {
	if d.typ.normalizesBlank(field) && isBlank(v) {
		v = nil
	}

	d.fields[field] = v
}

// Get returns a field value.
func (d *Document) Get(field string) (any, bool) {
	v, ok := d.fields[field]
	return v, ok
}

// CurrentValue returns a field value, or nil.
func (d *Document) CurrentValue(field string) any { return d.fields[field] }

// Fields returns a copy of the current field values.
func (d *Document) Fields() map[string]any { return maps.Clone(d.fields) }

// PendingChanges returns the field changes since the last save.
func (d *Document) PendingChanges() map[string]revisable.Change {
	return diffValues(d.saved, d.fields)
}

// Collection returns the nested collection named relation, creating it if needed.
func (d *Document) Collection(relation string) *Collection {
	c, ok := d.embeds[relation]
	if !ok {
		c = &Collection{relation: relation}
		d.embeds[relation] = c
		d.relations = append(d.relations, relation)
	}

	return c
}

// Save persists the document and every revision appended since the previous
// save. On failure the in-memory state, including appended revisions, is
// left as it was.
func (d *Document) Save(ctx context.Context) error {
	if d.saver == nil {
		return errNoSaver
	}

	now := time.Now().UTC()
	rec := d.Record()
	rec.UpdatedAt = now

	commit := models.DocumentCommit{
		Document:         rec,
		Insert:           !d.persisted,
		ExpectedRevision: copyInt(d.savedLast),
		NewRevisions:     d.revisions.Unpersisted(),
	}

	if err := d.saver.SaveDocument(ctx, commit); err != nil {
		return err
	}

	d.saved = cloneValues(d.fields)
	for _, c := range d.embeds {
		c.markSaved()
	}

	d.persisted = true
	d.savedLast = copyInt(d.last)
	d.updatedAt = now
	d.revisions.MarkPersisted()

	return nil
}

// Record returns the persisted form of the document's current state.
func (d *Document) Record() models.DocumentRecord {
	rec := models.DocumentRecord{
		ID:                 d.id,
		Type:               d.Type(),
		Fields:             cloneValues(d.fields),
		LastRevisionNumber: copyInt(d.last),
		CreatedAt:          d.createdAt,
		UpdatedAt:          d.updatedAt,
	}

	for _, relation := range d.relations {
		c := d.embeds[relation]
		if c.Len() == 0 {
			continue
		}

		if rec.Embeds == nil {
			rec.Embeds = map[string][]models.EmbeddedItem{}
		}

		rec.Embeds[relation] = c.records()
	}

	return rec
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
