package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/journalsync/internal/common"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db)
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:          id,
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		MigrationID: "migration-1-abcd",
		Journals: []JournalRun{
			{Journal: "Blog Public", Status: StatusExported, Artifact: "/tmp/a.zip", Added: 2, Unchanged: 5, Duration: 40 * time.Second},
			{Journal: "Blog Published", Status: StatusFailed, Error: "journal not found"},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	want := sampleRun("run-1", started)
	require.NoError(t, r.Record(ctx, want))

	got, err := r.Get(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Fatalf("run mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, got.Errors())
}

func TestGet_NotFound(t *testing.T) {
	r := setupRepo(t)
	_, err := r.Get(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecord_DuplicateIDRollsBack(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	run := sampleRun("run-1", time.Now().UTC())

	require.NoError(t, r.Record(ctx, run))
	require.Error(t, r.Record(ctx, run))

	got, err := r.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Journals, 2)
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.Record(ctx, sampleRun("a", base)))
	require.NoError(t, r.Record(ctx, sampleRun("b", base.Add(500*time.Millisecond))))
	require.NoError(t, r.Record(ctx, sampleRun("c", base.Add(time.Hour))))

	runs, err := r.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Len(t, runs[0].Journals, 2)

	all, err := r.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestList_Empty(t *testing.T) {
	runs, err := setupRepo(t).List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
