package revisable

import (
	"fmt"
	"maps"

	"github.com/persistorai/revisor/internal/models"
)

// StateReconstructor rebuilds a record's tracked values as of a revision.
type StateReconstructor interface {
	StateAt(number int) (models.DocumentState, error)
}

var _ StateReconstructor = (*Tree)(nil)

// Tree replays a revision log. The base revision seeds every tracked value
// and each later revision overwrites the values it recorded.
type Tree struct {
	revisions []models.Revision
}

// StateAt replays revisions in log order up to and including number.
func (t *Tree) StateAt(number int) (models.DocumentState, error) {
	idx := -1
	for i, rev := range t.revisions {
		if rev.Number == number {
			idx = i
			break
		}
	}

	if idx < 0 {
		return models.DocumentState{}, fmt.Errorf("%w: %d", models.ErrRevisionNotFound, number)
	}

	state := models.DocumentState{
		Number: number,
		Fields: make(map[string]any),
		Embeds: make(models.RevisedEmbeds),
	}

	for _, rev := range t.revisions[:idx+1] {
		maps.Copy(state.Fields, rev.RevisedAttributes)

		for relation, items := range rev.RevisedEmbeds {
			if state.Embeds[relation] == nil {
				state.Embeds[relation] = make(map[string]map[string]any)
			}

			for id, values := range items {
				if state.Embeds[relation][id] == nil {
					state.Embeds[relation][id] = make(map[string]any)
				}

				maps.Copy(state.Embeds[relation][id], values)
			}
		}
	}

	return state, nil
}

// Latest replays the whole log.
func (t *Tree) Latest() (models.DocumentState, error) {
	if len(t.revisions) == 0 {
		return models.DocumentState{}, models.ErrRevisionNotFound
	}

	return t.StateAt(t.revisions[len(t.revisions)-1].Number)
}
