// Package state persists journal snapshots and the migration ledger in a
// single JSON document.
//
// The file has one writer. Every save rewrites the whole document
// atomically, so a crash leaves either the previous or the new version on
// disk. Callers running several processes against one file must serialize
// them.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/journalsync/internal/filex"
	"github.com/dmitrijs2005/journalsync/internal/journal"
	"github.com/dmitrijs2005/journalsync/internal/logging"
	"github.com/dmitrijs2005/journalsync/internal/timex"
)

// writeFile is a test seam for filex.WriteFileAtomic.
var writeFile = filex.WriteFileAtomic

type Store struct {
	path     string
	journals []string
	logger   logging.Logger
	now      func() time.Time

	mu    sync.Mutex
	state *State
}

// NewStore returns a store for the file at path. journals are the names
// present in the default document.
func NewStore(path string, journals []string, logger logging.Logger) *Store {
	return &Store{
		path:     path,
		journals: journals,
		logger:   logger.With("component", "state", "path", path),
		now:      time.Now,
	}
}

func (s *Store) Path() string { return s.path }

// Load reads the state file. It never fails: a missing file yields the
// default document, and an unreadable or corrupt one is logged, moved aside
// to "<path>.corrupt-<unix>" when possible, and replaced by the default
// document in memory.
func (s *Store) Load(ctx context.Context) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx).Clone()
}

func (s *Store) loadLocked(ctx context.Context) *State {
	if s.state != nil {
		return s.state
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.state = Default(s.journals...)
		return s.state
	case err != nil:
		s.logger.Warn(ctx, "state file unreadable, starting from defaults", "error", err)
		s.state = Default(s.journals...)
		return s.state
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn(ctx, "state file corrupt, starting from defaults", "error", err)
		s.quarantine(ctx)
		s.state = Default(s.journals...)
		return s.state
	}

	st.normalize(s.journals)
	s.state = &st
	return s.state
}

func (s *Store) quarantine(ctx context.Context) {
	dst := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if err := os.Rename(s.path, dst); err != nil {
		s.logger.Warn(ctx, "could not preserve corrupt state file", "error", err)
		return
	}
	s.logger.Info(ctx, "corrupt state file preserved", "copy", dst)
}

// Save writes st to disk and makes it the current in-memory state.
func (s *Store) Save(ctx context.Context, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, st.Clone())
}

func (s *Store) saveLocked(ctx context.Context, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Path: s.path, Err: err}
	}
	if err := writeFile(s.path, data, 0o600); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	s.state = st
	s.logger.Debug(ctx, "state saved", "bytes", len(data))
	return nil
}

// update applies fn to a copy of the current state and saves the copy. The
// in-memory state changes only if the save succeeds.
func (s *Store) update(ctx context.Context, fn func(st *State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.loadLocked(ctx).Clone()
	fn(next)
	return s.saveLocked(ctx, next)
}

// Snapshot returns the last successful snapshot of journalName, or nil when
// the journal has never been exported.
func (s *Store) Snapshot(ctx context.Context, journalName string) *JournalSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.loadLocked(ctx).Journals[journalName]
	if !ok || snap.LastExport.IsZero() {
		return nil
	}
	c := snap.Clone()
	return &c
}

// UpdateJournalSnapshot replaces the snapshot of journalName with one built
// from entries and persists the document.
func (s *Store) UpdateJournalSnapshot(ctx context.Context, journalName string, entries []journal.Entry) error {
	now := timex.NewTimestamp(s.now())

	snap := JournalSnapshot{
		LastExport:   now,
		Entries:      make(map[string]SnapshotEntry, len(entries)),
		TotalEntries: len(entries),
		Order:        make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		if _, dup := snap.Entries[e.UUID]; dup {
			continue
		}
		snap.Order = append(snap.Order, e.UUID)
		snap.Entries[e.UUID] = SnapshotEntry{
			Title:        e.DisplayTitle(),
			CreationDate: e.CreationDate,
			ModifiedDate: e.EffectiveModified(),
			LastSeen:     now,
		}
	}

	err := s.update(ctx, func(st *State) {
		st.Journals[journalName] = snap
		st.LastProcessed = now
	})
	if err != nil {
		return fmt.Errorf("update snapshot %q: %w", journalName, err)
	}
	s.logger.Info(ctx, "journal snapshot updated", "journal", journalName, "entries", len(entries))
	return nil
}

// Migrations returns a copy of the migration ledger.
func (s *Store) Migrations(ctx context.Context) Migrations {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx).Migrations.Clone()
}

// SetMigrations replaces the migration ledger and persists the document.
func (s *Store) SetMigrations(ctx context.Context, m Migrations) error {
	m = m.Clone()
	return s.update(ctx, func(st *State) {
		st.Migrations = m
	})
}
