package document

import (
	"bytes"
	"encoding/json"
	"maps"
	"reflect"
	"strings"

	"github.com/persistorai/revisor/internal/revisable"
)

// equalValues compares two field values by their JSON encoding so that
// values loaded from storage (float64, []any) compare equal to the values
// that produced them.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}

	return bytes.Equal(aj, bj)
}

// diffValues returns the pending changes between saved and current values.
func diffValues(saved, current map[string]any) map[string]revisable.Change {
	changes := make(map[string]revisable.Change)

	for k, v := range current {
		old := saved[k]
		if !equalValues(old, v) {
			changes[k] = revisable.Change{Old: old, New: v}
		}
	}

	for k, old := range saved {
		if _, ok := current[k]; !ok && old != nil {
			changes[k] = revisable.Change{Old: old, New: nil}
		}
	}

	return changes
}

// isBlank reports whether v is nil, a whitespace-only string, or an empty
// slice or map.
func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

func cloneValues(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return maps.Clone(m)
}
