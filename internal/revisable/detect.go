package revisable

import (
	"github.com/persistorai/revisor/internal/models"
)

// HasRevisableChanges reports whether a persisted record has a pending change
// on a tracked top-level field or on a tracked field of any nested item.
// New records always report false; their initial state is captured by the
// base revision instead.
func HasRevisableChanges(rec Record) bool {
	if rec.IsNew() {
		return false
	}

	s := rec.Schema()
	for field := range rec.PendingChanges() {
		if s.IsRevisable(field) {
			return true
		}
	}

	for _, relation := range s.Relations() {
		for _, item := range s.items(rec, relation) {
			if EmbeddedItemHasRevisedChanges(s, relation, item) {
				return true
			}
		}
	}

	return false
}

// EmbeddedItemHasRevisedChanges reports whether item has a pending change on
// a field tracked for relation.
func EmbeddedItemHasRevisedChanges(s *Schema, relation string, item Item) bool {
	for field := range item.PendingChanges() {
		if s.IsRevisableIn(relation, field) {
			return true
		}
	}

	return false
}

// RevisedChanges returns the pending changes restricted to tracked fields.
// The result is empty for new records.
func RevisedChanges(rec Record) map[string]Change {
	out := make(map[string]Change)
	if rec.IsNew() {
		return out
	}

	s := rec.Schema()
	for field, ch := range rec.PendingChanges() {
		if s.IsRevisable(field) {
			out[field] = ch
		}
	}

	return out
}

// RevisedChangesAny reports whether any tracked top-level field has a pending change.
func RevisedChangesAny(rec Record) bool {
	return len(RevisedChanges(rec)) > 0
}

// FieldRevision returns the pending change of a tracked field.
func FieldRevision(rec Record, field string) (Change, bool) {
	ch, ok := RevisedChanges(rec)[field]
	return ch, ok
}

// RevisedEmbedChanges collects tracked item values per relation and item id.
//
// With useCurrentValueFallback false, only fields present in an item's
// pending changes are included, using the new side of the change; new
// records yield nothing. With useCurrentValueFallback true, every tracked
// field is read from the item's current value. Items and relations that
// contribute nothing are omitted.
func RevisedEmbedChanges(rec Record, useCurrentValueFallback bool) models.RevisedEmbeds {
	out := make(models.RevisedEmbeds)
	if rec.IsNew() && !useCurrentValueFallback {
		return out
	}

	s := rec.Schema()
	for _, relation := range s.Relations() {
		tracked := s.EmbeddedFields(relation)
		byItem := make(map[string]map[string]any)

		for _, item := range s.items(rec, relation) {
			values := make(map[string]any)

			if useCurrentValueFallback {
				for _, field := range tracked {
					values[field] = item.CurrentValue(field)
				}
			} else {
				for field, ch := range item.PendingChanges() {
					if s.IsRevisableIn(relation, field) {
						values[field] = ch.New
					}
				}
			}

			if len(values) > 0 {
				byItem[item.ID()] = values
			}
		}

		if len(byItem) > 0 {
			out[relation] = byItem
		}
	}

	return out
}
