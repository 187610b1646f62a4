package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/revisor/internal/models"
)

// Key layout:
//
//	doc/<id>                    document record (JSON)
//	seq/<id>                    next log position (uint64, big endian)
//	rev/<len>:<id>/<position>   revision (JSON), position zero-padded
//	num/<len>:<id>/<number>     log position of a revision number
//
// The byte length in front of the id keeps one document's range from
// prefixing another's.
const (
	docPrefix = "doc/"
	seqPrefix = "seq/"
	revPrefix = "rev/"
	numPrefix = "num/"
)

// BadgerConfig holds configuration for the embedded store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns production defaults for path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns a configuration for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// BadgerStore persists documents and their revision logs in an embedded
// BadgerDB. It implements the same contract as DocumentStore.
type BadgerStore struct {
	db     *badger.DB
	log    *logrus.Logger
	stopGC chan struct{}
	gcDone chan struct{}
}

// OpenBadger opens the embedded store and starts value log GC if configured.
func OpenBadger(cfg BadgerConfig, log *logrus.Logger) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for persistent storage")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("creating badger directory %s: %w", cfg.Path, err)
		}

		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if log != nil {
		opts = opts.WithLogger(log.WithField("component", "badger")).WithLoggingLevel(badger.WARNING)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	s := &BadgerStore{db: db, log: log}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})

		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return s, nil
}

func (s *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.log != nil {
				s.log.WithError(err).Warn("store.badger_gc_failed")
			}
		}
	}
}

// Close stops GC and closes the database.
func (s *BadgerStore) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
		s.stopGC = nil
	}

	return s.db.Close()
}

// HealthCheck reports whether the database is open.
func (s *BadgerStore) HealthCheck(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}

	return nil
}

func docKey(id string) []byte { return []byte(docPrefix + id) }
func seqKey(id string) []byte { return []byte(seqPrefix + id) }

func scopedPrefix(prefix, id string) []byte {
	return fmt.Appendf(nil, "%s%d:%s/", prefix, len(id), id)
}

func revLogPrefix(id string) []byte { return scopedPrefix(revPrefix, id) }

func revKey(id string, pos uint64) []byte {
	return fmt.Appendf(revLogPrefix(id), "%020d", pos)
}

func numKey(id string, number int) []byte {
	return fmt.Appendf(scopedPrefix(numPrefix, id), "%010d", number)
}

// SaveDocument writes the document and appends the commit's new revisions in
// one badger transaction. Concurrent writers to the same document surface
// as models.ErrRevisionConflict.
func (s *BadgerStore) SaveDocument(ctx context.Context, commit models.DocumentCommit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := checkStoredDocument(txn, commit); err != nil {
			return err
		}

		pos, err := readSeq(txn, commit.Document.ID)
		if err != nil {
			return err
		}

		for _, rev := range commit.NewRevisions {
			if err := appendRevision(txn, commit.Document.ID, pos, rev); err != nil {
				return err
			}

			pos++
		}

		if err := writeSeq(txn, commit.Document.ID, pos); err != nil {
			return err
		}

		data, err := json.Marshal(commit.Document)
		if err != nil {
			return fmt.Errorf("marshalling document: %w", err)
		}

		return txn.Set(docKey(commit.Document.ID), data)
	})
	if err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return fmt.Errorf("%w: concurrent write to document %s", models.ErrRevisionConflict, commit.Document.ID)
		}

		return err
	}

	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"document_id": commit.Document.ID,
			"insert":      commit.Insert,
			"revisions":   len(commit.NewRevisions),
		}).Debug("store.document_saved")
	}

	return nil
}

func checkStoredDocument(txn *badger.Txn, commit models.DocumentCommit) error {
	stored, err := readDocument(txn, commit.Document.ID)

	switch {
	case errors.Is(err, models.ErrDocumentNotFound):
		if commit.Insert {
			return nil
		}

		return err
	case err != nil:
		return err
	case commit.Insert:
		return models.ErrDuplicateKey
	case !expectedMatches(stored.LastRevisionNumber, commit.ExpectedRevision):
		return fmt.Errorf("%w: document %s moved past revision %s",
			models.ErrRevisionConflict, commit.Document.ID, formatNumber(commit.ExpectedRevision))
	default:
		return nil
	}
}

func appendRevision(txn *badger.Txn, id string, pos uint64, rev models.Revision) error {
	nk := numKey(id, rev.Number)

	_, err := txn.Get(nk)
	if err == nil {
		return fmt.Errorf("%w: duplicate revision number %d on document %s", models.ErrRevisionConflict, rev.Number, id)
	}

	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("checking revision number: %w", err)
	}

	data, err := json.Marshal(rev)
	if err != nil {
		return fmt.Errorf("marshalling revision %d: %w", rev.Number, err)
	}

	if err := txn.Set(revKey(id, pos), data); err != nil {
		return fmt.Errorf("writing revision %d: %w", rev.Number, err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], pos)

	return txn.Set(nk, buf[:])
}

func readSeq(txn *badger.Txn, id string) (uint64, error) {
	item, err := txn.Get(seqKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("reading revision sequence: %w", err)
	}

	var pos uint64

	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt revision sequence for %s", id)
		}

		pos = binary.BigEndian.Uint64(val)

		return nil
	})

	return pos, err
}

func writeSeq(txn *badger.Txn, id string, pos uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], pos)

	return txn.Set(seqKey(id), buf[:])
}

func readDocument(txn *badger.Txn, id string) (*models.DocumentRecord, error) {
	item, err := txn.Get(docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, models.ErrDocumentNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	var rec models.DocumentRecord

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", id, err)
	}

	return &rec, nil
}

// GetDocument returns a document and its full revision log in log order.
func (s *BadgerStore) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, []models.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		rec       *models.DocumentRecord
		revisions []models.Revision
	)

	err := s.db.View(func(txn *badger.Txn) error {
		var err error

		rec, err = readDocument(txn, id)
		if err != nil {
			return err
		}

		prefix := revLogPrefix(id)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rev models.Revision

			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rev)
			}); err != nil {
				return fmt.Errorf("decoding revision: %w", err)
			}

			revisions = append(revisions, rev)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return rec, revisions, nil
}

// ListDocuments returns documents with an optional type filter, most recently
// updated first, and whether more rows exist.
func (s *BadgerStore) ListDocuments(
	ctx context.Context,
	typeFilter string,
	limit, offset int,
) ([]models.DocumentRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	limit, offset = clampPage(limit, offset)

	var docs []models.DocumentRecord

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(docPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec models.DocumentRecord

			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decoding document: %w", err)
			}

			if typeFilter == "" || rec.Type == typeFilter {
				docs = append(docs, rec)
			}
		}

		return nil
	})
	if err != nil {
		return nil, false, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].ID < docs[j].ID
		}

		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})

	if offset >= len(docs) {
		return []models.DocumentRecord{}, false, nil
	}

	docs = docs[offset:]
	hasMore := len(docs) > limit

	if hasMore {
		docs = docs[:limit]
	}

	return docs, hasMore, nil
}
