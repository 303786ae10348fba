// Package workflow runs the two-journal publishing workflow: export the
// public and published journals, compare them with each other and with the
// previous run, and keep the snapshots and migration ledger current.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/journalsync/internal/diff"
	"github.com/dmitrijs2005/journalsync/internal/history"
	"github.com/dmitrijs2005/journalsync/internal/journal"
	"github.com/dmitrijs2005/journalsync/internal/logging"
	"github.com/dmitrijs2005/journalsync/internal/state"
	"github.com/dmitrijs2005/journalsync/internal/timex"
)

// Exporter is one browser session able to export journals.
type Exporter interface {
	ExportJournal(ctx context.Context, journalName string) (string, error)
	Close() error
}

type OpenFunc func(ctx context.Context) (Exporter, error)

type ParseFunc func(path, journalName string) ([]journal.Entry, error)

type StateStore interface {
	Snapshot(ctx context.Context, journalName string) *state.JournalSnapshot
	UpdateJournalSnapshot(ctx context.Context, journalName string, entries []journal.Entry) error
	Summary(ctx context.Context) state.Summary
}

type Ledger interface {
	RequestMigration(ctx context.Context, entries []journal.Ref, id string) (string, error)
	CompleteMigration(ctx context.Context, id string, completed []journal.Ref) error
	ListPending(ctx context.Context) []state.MigrationRecord
	PendingUUIDs(ctx context.Context) map[string]string
}

type Archiver interface {
	Archive(ctx context.Context, journalName, localPath string) (string, error)
}

type HistoryRecorder interface {
	Record(ctx context.Context, run history.Run) error
}

type MetricsRecorder interface {
	ObserveExport(journalName string, d time.Duration, err error)
	SetEntries(journalName string, counts map[string]int)
	SetPendingMigrations(n int)
	MarkRun(at time.Time)
}

type Journals struct {
	Public    string
	Published string
}

type Orchestrator struct {
	journals Journals
	open     OpenFunc
	parse    ParseFunc
	store    StateStore
	ledger   Ledger
	logger   logging.Logger
	now      func() time.Time

	archiver Archiver
	history  HistoryRecorder
	metrics  MetricsRecorder
}

type Option func(*Orchestrator)

func WithArchiver(a Archiver) Option { return func(o *Orchestrator) { o.archiver = a } }

func WithHistory(h HistoryRecorder) Option { return func(o *Orchestrator) { o.history = h } }

func WithMetrics(m MetricsRecorder) Option { return func(o *Orchestrator) { o.metrics = m } }

func New(journals Journals, open OpenFunc, parse ParseFunc, store StateStore, ledger Ledger, logger logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		journals: journals,
		open:     open,
		parse:    parse,
		store:    store,
		ledger:   ledger,
		logger:   logger.With("component", "workflow"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// fetchResult is the outcome of exporting one journal.
type fetchResult struct {
	entries  []journal.Entry
	artifact string
	archive  string
	duration time.Duration
	err      error
}

func (r fetchResult) ok() bool { return r.err == nil }

// RunWorkflow runs one pass. Export failures are isolated per journal and
// reported in the summary; an error is returned only when the state
// document or the ledger could not be persisted.
func (o *Orchestrator) RunWorkflow(ctx context.Context) (*Summary, error) {
	started := o.now()
	runID := uuid.NewString()
	log := o.logger.With("run", runID)
	log.Info(ctx, "workflow started", "public", o.journals.Public, "published", o.journals.Published)

	prevPublic := o.store.Snapshot(ctx, o.journals.Public)
	prevPublished := o.store.Snapshot(ctx, o.journals.Published)

	results := o.fetchAll(ctx, log)
	pub, publ := results[o.journals.Public], results[o.journals.Published]
	bothOK := pub.ok() && publ.ok()

	now := timex.NewTimestamp(o.now())
	newEntries, toMove := CompareJournals(pub.entries, publ.entries)

	sum := &Summary{
		RunID:     runID,
		Timestamp: now,
		Processed: Processed{NewEntries: len(newEntries), MovedEntries: len(toMove)},
		Entries: EntryLists{
			New:   journal.Refs(newEntries),
			Moved: moveActions(toMove),
		},
		Commands:            MigrationCommands(toMove),
		CompletedMigrations: []string{},
		Lifecycle:           []EntryLifecycle{},
		Movements: Movements{
			MovedToPublished:   []Movement{},
			MovedFromPublished: []Movement{},
			NewInPublic:        []journal.Ref{},
			NewInPublished:     []journal.Ref{},
		},
	}

	// Cross-journal conclusions need both sides; a failed export reads as an
	// empty journal and would report every entry as moved or new.
	if bothOK {
		sum.Movements = DetectJournalMovements(prevPublic, prevPublished, pub.entries, publ.entries, now)
		sum.Lifecycle = lifecycle(
			membership{public: snapshotSet(prevPublic), published: snapshotSet(prevPublished)},
			membership{public: uuidSet(pub.entries), published: uuidSet(publ.entries)},
			prevPublic != nil || prevPublished != nil,
		)
		for _, el := range sum.Lifecycle {
			if !el.Valid {
				log.Warn(ctx, "unexpected lifecycle transition", "uuid", el.UUID, "from", el.Previous, "to", el.State)
			}
		}
	} else {
		log.Warn(ctx, "skipping movement detection and migrations, a journal export failed")
	}

	var persistErr error
	for _, item := range []struct {
		name string
		prev *state.JournalSnapshot
		res  fetchResult
	}{
		{o.journals.Public, prevPublic, pub},
		{o.journals.Published, prevPublished, publ},
	} {
		outcome := JournalOutcome{
			Name:     item.name,
			Entries:  len(item.res.entries),
			Artifact: item.res.artifact,
			Archive:  item.res.archive,
			Duration: timex.Duration{Duration: item.res.duration},
		}
		if !item.res.ok() {
			outcome.Error = item.res.err.Error()
			sum.Processed.Errors++
			sum.Journals = append(sum.Journals, outcome)
			continue
		}

		d := diff.Compute(item.name, item.res.entries, item.prev)
		counts := d.Counts()
		outcome.Diff = &counts
		sum.Journals = append(sum.Journals, outcome)
		log.Info(ctx, "journal diff", "journal", item.name,
			"added", counts.Added, "modified", counts.Modified, "unchanged", counts.Unchanged, "removed", counts.Removed)

		if o.metrics != nil {
			o.metrics.SetEntries(item.name, map[string]int{
				"added":     counts.Added,
				"modified":  counts.Modified,
				"unchanged": counts.Unchanged,
				"removed":   counts.Removed,
				"total":     len(item.res.entries),
			})
		}

		if err := o.store.UpdateJournalSnapshot(ctx, item.name, item.res.entries); err != nil {
			persistErr = errors.Join(persistErr, err)
		}
	}

	if bothOK {
		if err := o.reconcileLedger(ctx, log, sum, newEntries, publ.entries); err != nil {
			persistErr = errors.Join(persistErr, err)
		}
	}

	sum.State = o.store.Summary(ctx)
	o.record(ctx, log, sum, started)

	if persistErr != nil {
		return sum, fmt.Errorf("persist workflow results: %w", persistErr)
	}
	log.Info(ctx, "workflow finished",
		"new", sum.Processed.NewEntries, "moved", sum.Processed.MovedEntries, "errors", sum.Processed.Errors)
	return sum, nil
}

// fetchAll exports both journals over one browser session, which is closed
// before returning. A session that cannot be opened fails both journals.
func (o *Orchestrator) fetchAll(ctx context.Context, log logging.Logger) map[string]fetchResult {
	names := []string{o.journals.Public, o.journals.Published}
	results := make(map[string]fetchResult, len(names))

	exp, err := o.open(ctx)
	if err != nil {
		log.Error(ctx, "cannot open browser session", "error", err)
		for _, n := range names {
			results[n] = fetchResult{entries: []journal.Entry{}, err: fmt.Errorf("open session: %w", err)}
		}
		return results
	}
	defer func() {
		if err := exp.Close(); err != nil {
			log.Warn(ctx, "closing browser session failed", "error", err)
		}
	}()

	for _, n := range names {
		results[n] = o.fetch(ctx, log, exp, n)
	}
	return results
}

func (o *Orchestrator) fetch(ctx context.Context, log logging.Logger, exp Exporter, name string) fetchResult {
	start := o.now()
	res := fetchResult{entries: []journal.Entry{}}

	path, err := exp.ExportJournal(ctx, name)
	if err == nil {
		res.artifact = path
		var entries []journal.Entry
		if entries, err = o.parse(path, name); err == nil {
			res.entries = entries
		}
	}
	res.duration = o.now().Sub(start)
	res.err = err

	if o.metrics != nil {
		o.metrics.ObserveExport(name, res.duration, err)
	}
	if err != nil {
		log.Error(ctx, "journal export failed, continuing without it", "journal", name, "error", err)
		return res
	}
	log.Info(ctx, "journal exported", "journal", name, "entries", len(res.entries), "path", path)

	if o.archiver != nil {
		loc, aerr := o.archiver.Archive(ctx, name, path)
		if aerr != nil {
			log.Warn(ctx, "artifact archive failed", "journal", name, "error", aerr)
		} else {
			res.archive = loc
		}
	}
	return res
}

// reconcileLedger requests a migration for new entries no pending record
// covers yet, then completes every pending record whose entries all appear
// in the published journal.
func (o *Orchestrator) reconcileLedger(ctx context.Context, log logging.Logger, sum *Summary, newEntries, published []journal.Entry) error {
	pending := o.ledger.ListPending(ctx)
	covered := o.ledger.PendingUUIDs(ctx)

	var uncovered []journal.Ref
	for _, e := range newEntries {
		if _, ok := covered[e.UUID]; !ok {
			uncovered = append(uncovered, e.Ref())
		}
	}
	if len(uncovered) > 0 {
		id, err := o.ledger.RequestMigration(ctx, uncovered, "")
		if err != nil {
			return err
		}
		sum.RequestedMigration = id
	}

	inPublished := journal.Index(published)
	for _, rec := range pending {
		if len(rec.Entries) == 0 {
			continue
		}
		done := make([]journal.Ref, 0, len(rec.Entries))
		for _, e := range rec.Entries {
			if cur, ok := inPublished[e.UUID]; ok {
				done = append(done, cur.Ref())
			}
		}
		if len(done) != len(rec.Entries) {
			continue
		}
		if err := o.ledger.CompleteMigration(ctx, rec.ID, done); err != nil {
			return err
		}
		sum.CompletedMigrations = append(sum.CompletedMigrations, rec.ID)
	}
	log.Info(ctx, "ledger reconciled", "requested", sum.RequestedMigration, "completed", len(sum.CompletedMigrations))
	return nil
}

// record writes the run to history and metrics. Failures are logged only.
func (o *Orchestrator) record(ctx context.Context, log logging.Logger, sum *Summary, started time.Time) {
	finished := o.now()

	if o.metrics != nil {
		o.metrics.SetPendingMigrations(sum.State.Migrations.Pending)
		o.metrics.MarkRun(finished)
	}
	if o.history == nil {
		return
	}

	run := history.Run{
		ID:          sum.RunID,
		StartedAt:   started,
		FinishedAt:  finished,
		MigrationID: sum.RequestedMigration,
	}
	for _, j := range sum.Journals {
		jr := history.JournalRun{
			Journal:  j.Name,
			Status:   history.StatusExported,
			Error:    j.Error,
			Artifact: j.Artifact,
			Duration: j.Duration.Duration,
		}
		if j.Error != "" {
			jr.Status = history.StatusFailed
		}
		if j.Diff != nil {
			jr.Added, jr.Modified, jr.Unchanged, jr.Removed = j.Diff.Added, j.Diff.Modified, j.Diff.Unchanged, j.Diff.Removed
		}
		run.Journals = append(run.Journals, jr)
	}
	if err := o.history.Record(ctx, run); err != nil {
		log.Warn(ctx, "run history not recorded", "error", err)
	}
}
