package revisable

import (
	"iter"

	"github.com/persistorai/revisor/internal/models"
)

// Revisions is the insertion-ordered, append-only revision log of one record.
// It is not safe for concurrent use; a record has a single writer.
type Revisions struct {
	list      []models.Revision
	persisted int
	tree      *Tree
}

// NewRevisions creates a log holding already-persisted revisions.
func NewRevisions(persisted ...models.Revision) *Revisions {
	list := make([]models.Revision, len(persisted))
	copy(list, persisted)

	return &Revisions{list: list, persisted: len(list)}
}

// Append adds rev to the end of the log.
func (r *Revisions) Append(rev models.Revision) {
	r.list = append(r.list, rev)
	r.tree = nil
}

// Len returns the number of revisions.
func (r *Revisions) Len() int { return len(r.list) }

// All yields every revision in insertion order.
func (r *Revisions) All() iter.Seq[models.Revision] {
	return func(yield func(models.Revision) bool) {
		for _, rev := range r.list {
			if !yield(rev) {
				return
			}
		}
	}
}

// List returns a copy of the log.
func (r *Revisions) List() []models.Revision {
	out := make([]models.Revision, len(r.list))
	copy(out, r.list)

	return out
}

// Last returns the most recently appended revision.
func (r *Revisions) Last() (models.Revision, bool) {
	if len(r.list) == 0 {
		return models.Revision{}, false
	}

	return r.list[len(r.list)-1], true
}

// FindByNumber returns the first revision with the given number.
func (r *Revisions) FindByNumber(number int) (models.Revision, bool) {
	for _, rev := range r.list {
		if rev.Number == number {
			return rev, true
		}
	}

	return models.Revision{}, false
}

// Exists reports whether a revision with the given number is present.
func (r *Revisions) Exists(number int) bool {
	_, ok := r.FindByNumber(number)
	return ok
}

// RevisedBy returns the revisions recorded by author.
func (r *Revisions) RevisedBy(author string) []models.Revision {
	var out []models.Revision
	for _, rev := range r.list {
		if rev.AuthoredBy(author) {
			out = append(out, rev)
		}
	}

	return out
}

// Authors returns the distinct authors in order of first appearance.
func (r *Revisions) Authors() []string {
	seen := make(map[string]struct{})

	var out []string
	for _, rev := range r.list {
		if rev.Author == nil {
			continue
		}

		if _, ok := seen[*rev.Author]; ok {
			continue
		}

		seen[*rev.Author] = struct{}{}
		out = append(out, *rev.Author)
	}

	return out
}

// WithField yields each revision whose revised attributes contain field.
func (r *Revisions) WithField(field string) iter.Seq[models.Revision] {
	return func(yield func(models.Revision) bool) {
		for _, rev := range r.list {
			if _, ok := rev.RevisedAttributes[field]; !ok {
				continue
			}

			if !yield(rev) {
				return
			}
		}
	}
}

// WithEmbed yields each revision that recorded values for itemID in relation.
func (r *Revisions) WithEmbed(relation, itemID string) iter.Seq[models.Revision] {
	return func(yield func(models.Revision) bool) {
		for _, rev := range r.list {
			if _, ok := rev.RevisedEmbeds.Item(relation, itemID); !ok {
				continue
			}

			if !yield(rev) {
				return
			}
		}
	}
}

// Unpersisted returns the revisions appended since the last MarkPersisted.
func (r *Revisions) Unpersisted() []models.Revision {
	out := make([]models.Revision, len(r.list)-r.persisted)
	copy(out, r.list[r.persisted:])

	return out
}

// MarkPersisted records that every revision in the log has been stored.
func (r *Revisions) MarkPersisted() {
	r.persisted = len(r.list)
}

// Tree returns the state reconstructor for the current log. It is rebuilt
// after every append.
func (r *Revisions) Tree() *Tree {
	if r.tree == nil {
		r.tree = &Tree{revisions: r.List()}
	}

	return r.tree
}
