package revisable

import (
	"iter"
	"time"

	"github.com/persistorai/revisor/internal/models"
)

// RevisedFieldInfo is one historical value of a field, derived on demand
// from a revision. For embedded fields Record is nil and Relation and
// ItemID identify the item.
type RevisedFieldInfo struct {
	Revision models.Revision
	Record   Record
	Field    string
	Relation string
	ItemID   string
}

// Embedded reports whether the info refers to a nested item field.
func (i RevisedFieldInfo) Embedded() bool { return i.Relation != "" }

// Value returns the recorded value and whether the revision recorded one.
func (i RevisedFieldInfo) Value() (any, bool) {
	if i.Embedded() {
		values, ok := i.Revision.RevisedEmbeds.Item(i.Relation, i.ItemID)
		if !ok {
			return nil, false
		}

		v, ok := values[i.Field]

		return v, ok
	}

	v, ok := i.Revision.RevisedAttributes[i.Field]

	return v, ok
}

// Number returns the revision number.
func (i RevisedFieldInfo) Number() int { return i.Revision.Number }

// CreatedAt returns when the revision was recorded.
func (i RevisedFieldInfo) CreatedAt() time.Time { return i.Revision.CreatedAt }

// Author returns the acting user of the revision, if any.
func (i RevisedFieldInfo) Author() *string { return i.Revision.Author }

// Message returns the revision message, if any.
func (i RevisedFieldInfo) Message() *string { return i.Revision.Message }

// Tag returns the revision tag, if any.
func (i RevisedFieldInfo) Tag() *string { return i.Revision.Tag }

// Type returns the revision type.
func (i RevisedFieldInfo) Type() models.RevisionType { return i.Revision.Type }

// Entry converts the info into its serialized form.
func (i RevisedFieldInfo) Entry() models.FieldHistoryEntry {
	v, _ := i.Value()

	return models.FieldHistoryEntry{
		Number:    i.Revision.Number,
		Type:      i.Revision.Type,
		CreatedAt: i.Revision.CreatedAt,
		Author:    i.Revision.Author,
		Message:   i.Revision.Message,
		Tag:       i.Revision.Tag,
		Field:     i.Field,
		Relation:  i.Relation,
		ItemID:    i.ItemID,
		Value:     v,
	}
}

// FieldHistory yields one entry per revision, in log order, that recorded field.
// The sequence reads the log lazily and can be iterated more than once.
func FieldHistory(rec Record, field string) iter.Seq[RevisedFieldInfo] {
	return func(yield func(RevisedFieldInfo) bool) {
		for rev := range rec.Revisions().WithField(field) {
			if !yield(RevisedFieldInfo{Revision: rev, Record: rec, Field: field}) {
				return
			}
		}
	}
}

// EmbeddedFieldHistory yields one entry per revision, in log order, that
// recorded values for itemID in relation.
func EmbeddedFieldHistory(rec Record, relation, itemID, field string) iter.Seq[RevisedFieldInfo] {
	return func(yield func(RevisedFieldInfo) bool) {
		for rev := range rec.Revisions().WithEmbed(relation, itemID) {
			info := RevisedFieldInfo{Revision: rev, Field: field, Relation: relation, ItemID: itemID}
			if !yield(info) {
				return
			}
		}
	}
}

// FieldRevised reports whether field has a pending tracked change.
func FieldRevised(rec Record, field string) bool {
	if rec.IsNew() {
		return false
	}

	_, ok := RevisedChanges(rec)[field]

	return ok
}

// LastRevisedAt returns the creation time of the most recent revision. A
// record holding only its base revision has never been revised.
func LastRevisedAt(rec Record) (time.Time, bool) {
	if rec.Revisions().Len() <= 1 {
		return time.Time{}, false
	}

	last, _ := rec.Revisions().Last()

	return last.CreatedAt, true
}

// RevisedBy reports whether author recorded any revision of rec.
func RevisedBy(rec Record, author string) bool {
	return len(rec.Revisions().RevisedBy(author)) > 0
}
