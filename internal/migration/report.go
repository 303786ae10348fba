package migration

import (
	"context"
	"math"

	"github.com/dmitrijs2005/journalsync/internal/state"
	"github.com/dmitrijs2005/journalsync/internal/timex"
)

const recentMigrations = 5

type Statistics struct {
	TotalProcessingRuns    int                    `json:"totalProcessingRuns"`
	AvgEntriesPerMigration float64                `json:"avgEntriesPerMigration"`
	OldestPendingMigration *state.MigrationRecord `json:"oldestPendingMigration"`
}

type Report struct {
	GeneratedAt      timex.Timestamp         `json:"generatedAt"`
	Summary          state.Summary           `json:"summary"`
	RecentMigrations []state.MigrationRecord `json:"recentMigrations"`
	PendingActions   []state.MigrationRecord `json:"pendingActions"`
	Statistics       Statistics              `json:"statistics"`
}

// Report aggregates the ledger: the latest completed migrations, every
// pending one, and counts over both lists.
func (l *Ledger) Report(ctx context.Context) Report {
	m := l.store.Migrations(ctx)

	all := len(m.Pending) + len(m.Completed)
	total := 0
	for _, group := range [][]state.MigrationRecord{m.Pending, m.Completed} {
		for _, r := range group {
			total += len(r.Entries)
		}
	}
	avg := 0.0
	if all > 0 {
		avg = math.Round(float64(total)/float64(all)*100) / 100
	}

	return Report{
		GeneratedAt:      timex.NewTimestamp(l.now()),
		Summary:          l.store.Summary(ctx),
		RecentMigrations: l.ListCompleted(ctx, recentMigrations),
		PendingActions:   l.ListPending(ctx),
		Statistics: Statistics{
			TotalProcessingRuns:    all,
			AvgEntriesPerMigration: avg,
			OldestPendingMigration: oldest(m.Pending),
		},
	}
}

func oldest(recs []state.MigrationRecord) *state.MigrationRecord {
	var out *state.MigrationRecord
	for i := range recs {
		if out == nil || recs[i].Timestamp.Before(out.Timestamp.Time) {
			r := recs[i]
			out = &r
		}
	}
	return out
}
