// Package storage implements the task store over the canonical roadmap
// file and the replica tables embedded in docs and source files.
//
// Every operation runs inside a batch. Outside an explicit Begin/Flush
// pair each call opens its own batch and writes it when done. Files are
// read once per batch and written under a lock on the roadmap; a file
// changed on disk since it was read is never overwritten. When a data
// directory is configured every line change is journaled first.
package storage

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mesh-intelligence/roadmap/internal/fileio"
	"github.com/mesh-intelligence/roadmap/internal/journal"
	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Store implements types.TaskStore.
type Store struct {
	mu          sync.Mutex
	config      types.Config
	strategy    string
	logger      *log.Logger
	journal     *journal.Journal
	lockTimeout time.Duration
	closed      bool

	// batch is the explicit batch opened by Begin, nil otherwise.
	batch *batch
}

var _ types.TaskStore = (*Store)(nil)

// batch holds the documents read during one operation or one
// Begin/Flush pair.
type batch struct {
	op        string
	journalID string
	roadmap   *document
	replicas  []*document
	loaded    bool
	written   bool
}

// edit is a computed but not yet applied change to one document.
type edit struct {
	doc     *document
	lines   []string
	entries []journal.Entry
}

// Open validates cfg and returns a store. The journal is opened when
// cfg.DataDir is set; interrupted batches found there are logged.
// A nil logger discards output.
func Open(cfg types.Config, logger *log.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Store{
		config:      cfg,
		strategy:    cfg.GetSyncStrategy(),
		logger:      logger,
		lockTimeout: fileio.DefaultLockTimeout,
	}
	if cfg.DataDir != "" {
		j, err := journal.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		s.journal = j
		open, err := j.Interrupted()
		if err != nil {
			j.Close()
			return nil, err
		}
		for _, b := range open {
			logger.Warn("interrupted batch, replicas may be out of sync",
				"batch", b.ID, "op", b.Op, "entries", b.Entries)
		}
	}
	return s, nil
}

// Config returns the configuration the store was opened with.
func (s *Store) Config() types.Config {
	return s.config
}

// Begin starts an explicit batch. Documents are read once and writes are
// held until Flush, unless the sync strategy is immediate.
// Returns ErrBatchActive if a batch is already open.
func (s *Store) Begin(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}
	if s.batch != nil {
		return types.ErrBatchActive
	}
	s.batch = &batch{op: op}
	return nil
}

// Flush writes the explicit batch and ends it.
// Returns ErrNoActiveBatch if Begin was not called.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return types.ErrNoActiveBatch
	}
	b := s.batch
	s.batch = nil
	return s.finish(b)
}

// Abort drops the explicit batch without writing anything. Changes
// already written under the immediate strategy stay on disk.
func (s *Store) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return types.ErrNoActiveBatch
	}
	b := s.batch
	s.batch = nil
	return s.discard(b)
}

// Close flushes an open batch and closes the journal.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	var err error
	if s.batch != nil {
		err = s.finish(s.batch)
		s.batch = nil
	}
	if s.journal != nil {
		if cerr := s.journal.Close(); err == nil {
			err = cerr
		}
	}
	s.closed = true
	return err
}

// run executes fn in the explicit batch, or in a batch of its own that
// is written when fn succeeds.
func (s *Store) run(op string, fn func(b *batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}
	if s.batch != nil {
		if err := fn(s.batch); err != nil {
			return err
		}
		if s.strategy == types.SyncImmediate {
			return s.write(s.batch)
		}
		return nil
	}
	b := &batch{op: op}
	if err := fn(b); err != nil {
		if derr := s.discard(b); derr != nil {
			s.logger.Warn("discarding journal batch", "err", derr)
		}
		return err
	}
	return s.finish(b)
}

// view executes a read-only fn against the current batch state.
func (s *Store) view(fn func(b *batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}
	if s.batch != nil {
		return fn(s.batch)
	}
	return fn(&batch{op: "read"})
}

func (s *Store) roadmap(b *batch) (*document, error) {
	if b.roadmap == nil {
		d, err := readDocument(s.config.RoadmapPath, types.RoadmapSource, table.RoadmapSchemas)
		if err != nil {
			return nil, err
		}
		b.roadmap = d
	}
	return b.roadmap, nil
}

func (s *Store) replicas(b *batch) ([]*document, error) {
	if b.loaded {
		return b.replicas, nil
	}
	refs, err := discover(s.config.RoadmapPath, s.config.DocsDir, s.config.SrcDirs)
	if err != nil {
		return nil, err
	}
	docs := make([]*document, 0, len(refs))
	for _, ref := range refs {
		d, err := readDocument(ref.path, ref.name, ref.schemas)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	b.replicas = docs
	b.loaded = true
	return docs, nil
}

// apply journals and installs computed edits.
func (s *Store) apply(b *batch, edits []edit) error {
	for _, e := range edits {
		if s.journal != nil && len(e.entries) > 0 {
			if b.journalID == "" {
				id, err := s.journal.Begin(b.op)
				if err != nil {
					return err
				}
				b.journalID = id
			}
			for _, entry := range e.entries {
				if err := s.journal.Record(b.journalID, entry); err != nil {
					return err
				}
			}
		}
		e.doc.lines = e.lines
		e.doc.dirty = true
	}
	return nil
}

// write puts every dirty document on disk, the roadmap first.
func (s *Store) write(b *batch) error {
	docs := make([]*document, 0, len(b.replicas)+1)
	if b.roadmap != nil && b.roadmap.dirty {
		docs = append(docs, b.roadmap)
	}
	for _, d := range b.replicas {
		if d.dirty {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		return nil
	}

	lock, err := fileio.Acquire(s.config.RoadmapPath+".lock", s.lockTimeout)
	if err != nil {
		return types.IOError(types.KindWriteFailed, s.config.RoadmapPath, err)
	}
	defer lock.Release()

	for _, d := range docs {
		current, err := os.ReadFile(d.path)
		if err != nil {
			return types.IOError(types.KindWriteFailed, d.path, err)
		}
		if string(current) != d.orig {
			return &types.Error{
				Kind:    types.KindWriteFailed,
				Message: "file changed on disk since it was read",
				Path:    d.path,
			}
		}
		text := d.text()
		if err := fileio.WriteFile(d.path, []byte(text)); err != nil {
			return types.IOError(types.KindWriteFailed, d.path, err)
		}
		d.orig = text
		d.dirty = false
		b.written = true
		s.logger.Debug("wrote file", "file", d.name, "batch", b.op)
	}
	return nil
}

// finish writes b and commits its journal batch.
func (s *Store) finish(b *batch) error {
	if err := s.write(b); err != nil {
		return err
	}
	if s.journal != nil && b.journalID != "" {
		if err := s.journal.Commit(b.journalID); err != nil {
			return fmt.Errorf("committing journal batch: %w", err)
		}
	}
	return nil
}

// discard drops the journal batch of b. Entries already on disk under
// the immediate strategy keep the batch open so a later sync sees it.
func (s *Store) discard(b *batch) error {
	if s.journal == nil || b.journalID == "" {
		return nil
	}
	if b.written {
		return nil
	}
	return s.journal.Discard(b.journalID)
}

// InterruptedBatches lists journal batches that never committed.
func (s *Store) InterruptedBatches() ([]journal.Batch, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Interrupted()
}

// Reconcile marks every interrupted batch as reconciled. Call it after
// the replicas were synced from the roadmap.
func (s *Store) Reconcile() (int, error) {
	if s.journal == nil {
		return 0, nil
	}
	return s.journal.Reconcile()
}

// History returns the most recent journaled line changes of id.
func (s *Store) History(id types.ID, limit int) ([]journal.Entry, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.History(id, limit)
}
