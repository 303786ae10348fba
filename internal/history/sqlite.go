package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/journalsync/internal/common"
	"github.com/dmitrijs2005/journalsync/internal/dbx"
	"github.com/dmitrijs2005/journalsync/internal/history/migrations"
)

// timeLayout has fixed width so stored values sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (creating if needed) the history database at path and applies
// pending migrations.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := dbx.OpenSQLite(ctx, "file:"+path+"?_pragma=foreign_keys(1)", migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	return db, nil
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Record(ctx context.Context, run Run) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, started_at, finished_at, migration_id, error_count)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.MigrationID, run.Errors())
		if err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}

		for _, j := range run.Journals {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO run_journals
					(run_id, journal, status, error, artifact, added, modified, unchanged, removed, duration_ms)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, run.ID, j.Journal, string(j.Status), j.Error, j.Artifact,
				j.Added, j.Modified, j.Unchanged, j.Removed, j.Duration.Milliseconds())
			if err != nil {
				return fmt.Errorf("failed to insert run %s journal %s: %w", run.ID, j.Journal, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Run, error) {
	var (
		run             Run
		started, finish string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, migration_id FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &started, &finish, &run.MigrationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	if err := parseTimes(&run, started, finish); err != nil {
		return nil, err
	}

	if run.Journals, err = r.journals(ctx, run.ID); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, migration_id FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var (
			run             Run
			started, finish string
		)
		if err := rows.Scan(&run.ID, &started, &finish, &run.MigrationID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if err := parseTimes(&run, started, finish); err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate run rows: %w", err)
	}
	rows.Close()

	// Journals are loaded once the run cursor is closed.
	for i := range runs {
		if runs[i].Journals, err = r.journals(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *SQLiteRepository) journals(ctx context.Context, runID string) ([]JournalRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT journal, status, error, artifact, added, modified, unchanged, removed, duration_ms
		FROM run_journals WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list journals of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := []JournalRun{}
	for rows.Next() {
		var (
			j      JournalRun
			status string
			ms     int64
		)
		if err := rows.Scan(&j.Journal, &status, &j.Error, &j.Artifact,
			&j.Added, &j.Modified, &j.Unchanged, &j.Removed, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		j.Status = JournalStatus(status)
		j.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal rows: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimes(run *Run, started, finished string) error {
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return fmt.Errorf("run %s: bad started_at %q: %w", run.ID, started, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return fmt.Errorf("run %s: bad finished_at %q: %w", run.ID, finished, err)
	}
	return nil
}
