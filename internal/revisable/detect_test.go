package revisable

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/persistorai/revisor/internal/models"
)

func TestHasRevisableChanges(t *testing.T) {
	t.Run("new record", func(t *testing.T) {
		r := newFakeRecord(articleSchema(), map[string]any{})
		r.set("status", "draft")
		assert.False(t, HasRevisableChanges(r))
	})

	t.Run("untracked field", func(t *testing.T) {
		r := persisted(map[string]any{"views": 1})
		r.set("views", 2)
		assert.False(t, HasRevisableChanges(r))
	})

	t.Run("tracked field", func(t *testing.T) {
		r := persisted(map[string]any{"status": "draft"})
		r.set("status", "published")
		assert.True(t, HasRevisableChanges(r))
	})

	t.Run("tracked embedded field", func(t *testing.T) {
		r := persisted(map[string]any{})
		r.comments = append(r.comments, newFakeItem("c1", map[string]any{"text": "hi"}))
		assert.True(t, HasRevisableChanges(r))
	})

	t.Run("untracked embedded field", func(t *testing.T) {
		r := persisted(map[string]any{})
		r.comments = append(r.comments, newFakeItem("c1", map[string]any{"likes": 3}))
		assert.False(t, HasRevisableChanges(r))
	})
}

func TestRevisedChanges(t *testing.T) {
	r := persisted(map[string]any{"status": "draft", "views": 1})
	r.set("status", "published")
	r.set("views", 5)

	changes := RevisedChanges(r)
	assert.Equal(t, map[string]Change{"status": {Old: "draft", New: "published"}}, changes)
	assert.True(t, RevisedChangesAny(r))

	ch, ok := FieldRevision(r, "status")
	assert.True(t, ok)
	assert.Equal(t, "draft", ch.Old)

	_, ok = FieldRevision(r, "views")
	assert.False(t, ok)

	fresh := newFakeRecord(articleSchema(), map[string]any{})
	fresh.set("status", "draft")
	assert.Empty(t, RevisedChanges(fresh))
	assert.NotNil(t, RevisedChanges(fresh))
}

func TestRevisedEmbedChanges(t *testing.T) {
	r := persisted(map[string]any{})
	c1 := newFakeItem("c1", map[string]any{"text": "hi", "likes": 1})
	c2 := newFakeItem("c2", map[string]any{"text": "yo"})
	c1.changes = map[string]Change{}
	c2.changes = map[string]Change{}
	r.comments = []*fakeItem{c1, c2}

	assert.Empty(t, RevisedEmbedChanges(r, false))

	c1.set("text", "bye")
	c1.set("likes", 2)

	assert.Equal(t, models.RevisedEmbeds{
		"comments": {"c1": {"text": "bye"}},
	}, RevisedEmbedChanges(r, false))

	assert.Equal(t, models.RevisedEmbeds{
		"comments": {
			"c1": {"text": "bye"},
			"c2": {"text": "yo"},
		},
	}, RevisedEmbedChanges(r, true))
}

func TestRevisedEmbedChanges_NewRecord(t *testing.T) {
	r := newFakeRecord(articleSchema(), map[string]any{})
	r.comments = []*fakeItem{newFakeItem("c1", map[string]any{"text": "hi"})}

	assert.Empty(t, RevisedEmbedChanges(r, false))
	assert.Equal(t, "hi", RevisedEmbedChanges(r, true)["comments"]["c1"]["text"])
}
