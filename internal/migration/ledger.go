// Package migration keeps the ledger of requests to move entries from the
// public journal to the published one.
package migration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/journalsync/internal/common"
	"github.com/dmitrijs2005/journalsync/internal/journal"
	"github.com/dmitrijs2005/journalsync/internal/logging"
	"github.com/dmitrijs2005/journalsync/internal/state"
	"github.com/dmitrijs2005/journalsync/internal/timex"
)

// DefaultCompletedLimit is used by ListCompleted for a non-positive limit.
const DefaultCompletedLimit = 10

// Store is the part of state.Store the ledger needs.
type Store interface {
	Migrations(ctx context.Context) state.Migrations
	SetMigrations(ctx context.Context, m state.Migrations) error
	Summary(ctx context.Context) state.Summary
}

type Ledger struct {
	store  Store
	logger logging.Logger
	now    func() time.Time
}

func NewLedger(store Store, logger logging.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.With("component", "migration"),
		now:    time.Now,
	}
}

// NewID returns "migration-<unix ms>-<8 hex chars>". The random suffix keeps
// ids unique when two requests land in the same millisecond.
func NewID(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("migration-%d-%s", at.UnixMilli(), suffix)
}

// RequestMigration appends a pending record for entries and persists it.
// An empty id is replaced by a generated one. Reusing an id already in the
// ledger fails with common.ErrDuplicateMigration.
func (l *Ledger) RequestMigration(ctx context.Context, entries []journal.Ref, id string) (string, error) {
	if len(entries) == 0 {
		return "", common.ErrNothingToMigrate
	}

	now := l.now()
	if id == "" {
		id = NewID(now)
	}

	m := l.store.Migrations(ctx)
	if findRecord(m.Pending, id) >= 0 || findRecord(m.Completed, id) >= 0 {
		return "", fmt.Errorf("%w: %s", common.ErrDuplicateMigration, id)
	}

	m.Pending = append(m.Pending, state.MigrationRecord{
		ID:        id,
		Timestamp: timex.NewTimestamp(now),
		Status:    state.StatusPending,
		Entries:   append([]journal.Ref(nil), entries...),
	})

	if err := l.store.SetMigrations(ctx, m); err != nil {
		return "", fmt.Errorf("request migration: %w", err)
	}

	l.logger.Info(ctx, "migration requested", "id", id, "entries", len(entries))
	return id, nil
}

// CompleteMigration moves the pending record id to the completed list. An
// unknown or already completed id is logged and ignored.
func (l *Ledger) CompleteMigration(ctx context.Context, id string, completed []journal.Ref) error {
	m := l.store.Migrations(ctx)

	i := findRecord(m.Pending, id)
	if i < 0 {
		l.logger.Warn(ctx, "migration not pending, nothing to complete", "id", id)
		return nil
	}

	rec := m.Pending[i]
	at := timex.NewTimestamp(l.now())
	rec.Status = state.StatusCompleted
	rec.CompletedAt = &at
	rec.CompletedEntries = append([]journal.Ref{}, completed...)

	m.Pending = append(m.Pending[:i:i], m.Pending[i+1:]...)
	m.Completed = append(m.Completed, rec)

	if err := l.store.SetMigrations(ctx, m); err != nil {
		return fmt.Errorf("complete migration: %w", err)
	}

	l.logger.Info(ctx, "migration completed", "id", id, "entries", len(completed))
	return nil
}

// ListPending returns pending records, most recently requested first.
func (l *Ledger) ListPending(ctx context.Context) []state.MigrationRecord {
	recs := l.store.Migrations(ctx).Pending
	sortNewestFirst(recs, func(r state.MigrationRecord) timex.Timestamp { return r.Timestamp })
	return recs
}

// ListCompleted returns up to limit completed records, most recently
// completed first.
func (l *Ledger) ListCompleted(ctx context.Context, limit int) []state.MigrationRecord {
	if limit <= 0 {
		limit = DefaultCompletedLimit
	}
	recs := l.store.Migrations(ctx).Completed
	sortNewestFirst(recs, func(r state.MigrationRecord) timex.Timestamp {
		if r.CompletedAt == nil {
			return timex.Timestamp{}
		}
		return *r.CompletedAt
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// PendingUUIDs maps every entry uuid in a pending record to that record's id.
func (l *Ledger) PendingUUIDs(ctx context.Context) map[string]string {
	out := make(map[string]string)
	for _, rec := range l.store.Migrations(ctx).Pending {
		for _, e := range rec.Entries {
			if _, ok := out[e.UUID]; !ok {
				out[e.UUID] = rec.ID
			}
		}
	}
	return out
}

func findRecord(recs []state.MigrationRecord, id string) int {
	for i, r := range recs {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// sortNewestFirst orders recs by key descending; records with equal keys end
// up in reverse insertion order.
func sortNewestFirst(recs []state.MigrationRecord, key func(state.MigrationRecord) timex.Timestamp) {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return key(recs[i]).After(key(recs[j]).Time)
	})
}
