package revisable

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/models"
)

// Options configures a single revise call.
type Options struct {
	Message string
	Tag     string
	Author  string

	// CreatedAt overrides the creation time of the new revision. Zero means now.
	CreatedAt time.Time

	// Type defaults to models.RevisionChange.
	Type models.RevisionType

	// Commit replaces the record's Save as the persistence call.
	Commit func(ctx context.Context) error
}

// Result is the outcome of a soft revise call.
type Result struct {
	// Revision is nil when nothing qualified for a new revision.
	Revision *models.Revision

	Committed bool
	CommitErr error
}

// Engine builds revisions for records. It holds no per-record state and may
// be shared, but each record must only be revised by one caller at a time:
// revision numbers are assigned without any reservation step, so two callers
// revising the same record concurrently can pick the same number. Backends
// detect that case at commit time with models.ErrRevisionConflict.
type Engine struct {
	log *logrus.Logger
	now func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(log *logrus.Logger) *Engine {
	return &Engine{log: log, now: time.Now}
}

// Revise records a revision if one qualifies and then commits the record.
// Commit failures are reported in the Result rather than returned; the
// appended revision stays in memory, so a failed record should be reloaded
// before reuse. Only an invalid type or a broken base-revision invariant
// produce an error.
func (e *Engine) Revise(ctx context.Context, rec Record, opts Options) (Result, error) {
	rev, err := e.Prepare(rec, opts)
	if err != nil {
		return Result{}, err
	}

	res := Result{Revision: rev}
	if err := e.commit(ctx, rec, opts); err != nil {
		e.log.WithError(err).WithField("schema", rec.Schema().Name()).Warn("revision.commit_failed")
		res.CommitErr = err

		return res, nil
	}

	res.Committed = true

	return res, nil
}

// ReviseStrict is Revise with commit failures returned as errors wrapping
// models.ErrCommitFailed. It returns the new revision, or nil if none qualified.
func (e *Engine) ReviseStrict(ctx context.Context, rec Record, opts Options) (*models.Revision, error) {
	rev, err := e.Prepare(rec, opts)
	if err != nil {
		return nil, err
	}

	if err := e.commit(ctx, rec, opts); err != nil {
		return rev, fmt.Errorf("%w: %w", models.ErrCommitFailed, err)
	}

	return rev, nil
}

func (e *Engine) commit(ctx context.Context, rec Record, opts Options) error {
	if opts.Commit != nil {
		return opts.Commit(ctx)
	}

	return rec.Save(ctx)
}

// Prepare builds and appends the next revision without committing. The base
// revision is created first when the record has never been revised. It
// returns nil when the type is change and no tracked field changed.
func (e *Engine) Prepare(rec Record, opts Options) (*models.Revision, error) {
	typ := opts.Type
	if typ == "" {
		typ = models.RevisionChange
	}

	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidRevisionType, typ)
	}

	if !rec.Schema().Sealed() {
		return nil, fmt.Errorf("%w: %s is not registered", models.ErrUnknownSchema, rec.Schema().Name())
	}

	if !typ.Forced() && !HasRevisableChanges(rec) {
		return nil, nil
	}

	if rec.LastRevisionNumber() == nil {
		if _, err := e.BuildBase(rec); err != nil {
			return nil, err
		}

		rec.SetLastRevisionNumber(models.BaseRevisionNumber)
	}

	rev := e.buildNext(rec)
	rev.Type = typ
	if !opts.CreatedAt.IsZero() {
		rev.CreatedAt = opts.CreatedAt
	}

	rev.Message = models.StringPtr(opts.Message)
	rev.Tag = models.StringPtr(opts.Tag)
	rev.Author = models.StringPtr(opts.Author)
	rev.SetCompressed()

	rec.Revisions().Append(rev)
	rec.SetLastRevisionNumber(rev.Number)

	e.log.WithFields(logrus.Fields{
		"schema": rec.Schema().Name(),
		"number": rev.Number,
		"type":   rev.Type,
		"fields": len(rev.RevisedAttributes),
		"embeds": len(rev.RevisedEmbeds),
	}).Debug("revision.created")

	return &rev, nil
}

// BuildBase appends the base revision: every tracked field's value before
// its pending change (or its current value when unchanged) and every
// tracked item's current values. It fails with models.ErrBaseRevisionExists
// if the record already has revisions, leaving the log untouched.
func (e *Engine) BuildBase(rec Record) (*models.Revision, error) {
	if rec.Revisions().Len() > 0 {
		return nil, models.ErrBaseRevisionExists
	}

	changes := RevisedChanges(rec)
	attrs := make(map[string]any)

	for _, field := range rec.Schema().Fields() {
		if ch, ok := changes[field]; ok {
			attrs[field] = ch.Old
		} else {
			attrs[field] = rec.CurrentValue(field)
		}
	}

	rev := models.Revision{
		Number:            models.BaseRevisionNumber,
		Type:              models.RevisionChange,
		CreatedAt:         rec.CreatedAt(),
		RevisedAttributes: attrs,
		RevisedEmbeds:     RevisedEmbedChanges(rec, true),
	}
	rev.SetCompressed()

	rec.Revisions().Append(rev)

	e.log.WithFields(logrus.Fields{
		"schema": rec.Schema().Name(),
		"fields": len(attrs),
	}).Debug("revision.base_created")

	return &rev, nil
}

func (e *Engine) buildNext(rec Record) models.Revision {
	attrs := make(map[string]any)
	for field, ch := range RevisedChanges(rec) {
		attrs[field] = ch.New
	}

	return models.Revision{
		Number:            NextRevisionNumber(rec),
		Type:              models.RevisionChange,
		CreatedAt:         e.now().UTC(),
		RevisedAttributes: attrs,
		RevisedEmbeds:     RevisedEmbedChanges(rec, false),
	}
}

// NextRevisionNumber returns the first number after the record's last
// revision number that is not already used in its log.
func NextRevisionNumber(rec Record) int {
	number := 0
	if last := rec.LastRevisionNumber(); last != nil {
		number = *last + 1
	}

	for rec.Revisions().Exists(number) {
		number++
	}

	return number
}
