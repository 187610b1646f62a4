package revisable

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistorai/revisor/internal/models"
)

func TestRevise_NoChangesProducesNoRevision(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})

	res, err := testEngine().Revise(context.Background(), r, Options{})
	require.NoError(t, err)

	assert.Nil(t, res.Revision)
	assert.True(t, res.Committed)
	assert.Nil(t, r.LastRevisionNumber())
	assert.Equal(t, 0, r.Revisions().Len())
	assert.Equal(t, 1, r.saves, "commit still runs")
}

func TestRevise_FirstChangeBuildsBaseAndIncremental(t *testing.T) {
	r := persisted(map[string]any{"status": "draft", "title": "Hello"})
	r.set("status", "published")

	rev, err := testEngine().ReviseStrict(context.Background(), r, Options{Message: "publish", Tag: "v1", Author: "alice"})
	require.NoError(t, err)
	require.NotNil(t, rev)

	require.Equal(t, 2, r.Revisions().Len())

	base, ok := r.Revisions().FindByNumber(0)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"status": "draft", "title": "Hello"}, base.RevisedAttributes)
	assert.Equal(t, r.created, base.CreatedAt)
	assert.True(t, base.Compressed)
	assert.Nil(t, base.Author)

	assert.Equal(t, 1, rev.Number)
	assert.Equal(t, models.RevisionChange, rev.Type)
	assert.Equal(t, map[string]any{"status": "published"}, rev.RevisedAttributes)
	assert.Equal(t, "publish", *rev.Message)
	assert.Equal(t, "v1", *rev.Tag)
	assert.Equal(t, "alice", *rev.Author)
	assert.True(t, rev.Compressed)
	assert.Equal(t, time.UTC, rev.CreatedAt.Location())

	require.NotNil(t, r.LastRevisionNumber())
	assert.Equal(t, 1, *r.LastRevisionNumber())
}

func TestRevise_IsIdempotentWithoutNewChanges(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})
	r.set("status", "published")

	eng := testEngine()
	_, err := eng.ReviseStrict(context.Background(), r, Options{})
	require.NoError(t, err)

	rev, err := eng.ReviseStrict(context.Background(), r, Options{})
	require.NoError(t, err)
	assert.Nil(t, rev)
	assert.Equal(t, 2, r.Revisions().Len())
	assert.Equal(t, 1, *r.LastRevisionNumber())
}

func TestRevise_NumbersStrictlyIncrease(t *testing.T) {
	r := persisted(map[string]any{"status": "s0"})
	eng := testEngine()

	for i := 1; i <= 4; i++ {
		r.set("status", i)
		_, err := eng.ReviseStrict(context.Background(), r, Options{})
		require.NoError(t, err)
	}

	prev := -1
	seen := map[int]bool{}
	for rev := range r.Revisions().All() {
		assert.Greater(t, rev.Number, prev)
		assert.False(t, seen[rev.Number])
		seen[rev.Number] = true
		prev = rev.Number
	}

	assert.Equal(t, 4, *r.LastRevisionNumber())
}

func TestRevise_SnapshotWithoutChanges(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})
	eng := testEngine()

	rev, err := eng.ReviseStrict(context.Background(), r, Options{Type: models.RevisionSnapshot})
	require.NoError(t, err)
	require.NotNil(t, rev)

	assert.Equal(t, 1, rev.Number)
	assert.Equal(t, models.RevisionSnapshot, rev.Type)
	assert.Empty(t, rev.RevisedAttributes)
	assert.Empty(t, rev.RevisedEmbeds)

	ev, err := eng.ReviseStrict(context.Background(), r, Options{Type: models.RevisionEvent})
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Number)
}

func TestRevise_InvalidTypeDoesNotMutate(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})
	r.set("status", "published")

	_, err := testEngine().Revise(context.Background(), r, Options{Type: "rollback"})
	require.ErrorIs(t, err, models.ErrInvalidRevisionType)

	assert.Equal(t, 0, r.Revisions().Len())
	assert.Nil(t, r.LastRevisionNumber())
	assert.Equal(t, 0, r.saves)
}

func TestRevise_CreatedAtOverride(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})
	r.set("status", "published")
	at := time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)

	rev, err := testEngine().ReviseStrict(context.Background(), r, Options{CreatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, at, rev.CreatedAt)
}

func TestRevise_NestedCollection(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})
	r.comments = []*fakeItem{newFakeItem("c1", map[string]any{"text": "hi"})}
	eng := testEngine()

	_, err := eng.ReviseStrict(context.Background(), r, Options{})
	require.NoError(t, err)

	base, _ := r.Revisions().FindByNumber(0)
	assert.Equal(t, "hi", base.RevisedEmbeds["comments"]["c1"]["text"])

	r.comment("c1").set("text", "bye")
	rev, err := eng.ReviseStrict(context.Background(), r, Options{})
	require.NoError(t, err)
	require.NotNil(t, rev)

	assert.Equal(t, 2, rev.Number)
	assert.Equal(t, "bye", rev.RevisedEmbeds["comments"]["c1"]["text"])
	assert.Empty(t, rev.RevisedAttributes)

	base, _ = r.Revisions().FindByNumber(0)
	assert.Equal(t, "hi", base.RevisedEmbeds["comments"]["c1"]["text"])
}

func TestBuildBase_Twice(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})
	eng := testEngine()

	_, err := eng.BuildBase(r)
	require.NoError(t, err)

	_, err = eng.BuildBase(r)
	require.ErrorIs(t, err, models.ErrBaseRevisionExists)
	assert.Equal(t, 1, r.Revisions().Len())
}

func TestRevise_BaseExistsWithoutCounter(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})
	r.revs = NewRevisions(models.Revision{Number: 0})
	r.set("status", "published")

	_, err := testEngine().ReviseStrict(context.Background(), r, Options{})
	require.ErrorIs(t, err, models.ErrBaseRevisionExists)
	assert.Equal(t, 1, r.Revisions().Len())
	assert.Equal(t, 0, r.saves)
}

func TestNextRevisionNumber_SkipsTakenNumbers(t *testing.T) {
	r := persisted(map[string]any{})
	r.revs = NewRevisions(models.Revision{Number: 0}, models.Revision{Number: 2}, models.Revision{Number: 3})
	r.SetLastRevisionNumber(1)

	assert.Equal(t, 4, NextRevisionNumber(r))
}

func TestRevise_CommitFailure(t *testing.T) {
	boom := errors.New("disk full")

	t.Run("soft", func(t *testing.T) {
		r := persisted(map[string]any{"status": "draft"})
		r.set("status", "published")
		r.saveErr = boom

		res, err := testEngine().Revise(context.Background(), r, Options{})
		require.NoError(t, err)
		assert.False(t, res.Committed)
		assert.ErrorIs(t, res.CommitErr, boom)
		require.NotNil(t, res.Revision)
		assert.Equal(t, 2, r.Revisions().Len(), "revision stays appended")
	})

	t.Run("strict", func(t *testing.T) {
		r := persisted(map[string]any{"status": "draft"})
		r.set("status", "published")
		r.saveErr = boom

		rev, err := testEngine().ReviseStrict(context.Background(), r, Options{})
		require.ErrorIs(t, err, models.ErrCommitFailed)
		assert.ErrorIs(t, err, boom)
		require.NotNil(t, rev)
		assert.Len(t, r.Revisions().Unpersisted(), 2)
	})
}

func TestRevise_CustomCommit(t *testing.T) {
	r := persisted(map[string]any{"status": "draft"})
	r.set("status", "published")

	called := false
	_, err := testEngine().ReviseStrict(context.Background(), r, Options{
		Commit: func(context.Context) error {
			called = true
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 0, r.saves)
}

func TestRevise_UnregisteredSchema(t *testing.T) {
	s := NewSchema("loose", nil)
	_ = s.DeclareFields("status")
	r := newFakeRecord(s, map[string]any{})
	r.isNew = false
	r.set("status", "x")

	_, err := testEngine().ReviseStrict(context.Background(), r, Options{})
	require.ErrorIs(t, err, models.ErrUnknownSchema)
}

func TestRevise_ReplayReproducesCurrentValues(t *testing.T) {
	r := persisted(map[string]any{"status": "draft", "title": "A"})
	r.comments = []*fakeItem{newFakeItem("c1", map[string]any{"text": "one"})}
	for _, c := range r.comments {
		c.changes = map[string]Change{}
	}

	eng := testEngine()
	steps := []func(){
		func() { r.set("status", "review") },
		func() { r.set("title", "B"); r.comment("c1").set("text", "two") },
		func() { r.set("status", "published"); r.set("title", "C") },
	}

	for _, step := range steps {
		step()
		_, err := eng.ReviseStrict(context.Background(), r, Options{})
		require.NoError(t, err)
	}

	state, err := r.Revisions().Tree().Latest()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "published", "title": "C"}, state.Fields)
	assert.Equal(t, "two", state.Embeds["comments"]["c1"]["text"])

	first, err := r.Revisions().Tree().StateAt(1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "review", "title": "A"}, first.Fields)
	assert.Equal(t, "one", first.Embeds["comments"]["c1"]["text"])

	_, err = r.Revisions().Tree().StateAt(99)
	assert.ErrorIs(t, err, models.ErrRevisionNotFound)
}
