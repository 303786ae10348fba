package state

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/journalsync/internal/timex"
)

type JournalSummary struct {
	Name         string          `json:"name"`
	LastExport   timex.Timestamp `json:"lastExport"`
	TotalEntries int             `json:"totalEntries"`
}

type MigrationCounts struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

type Summary struct {
	LastProcessed timex.Timestamp  `json:"lastProcessed"`
	Journals      []JournalSummary `json:"journals"`
	Migrations    MigrationCounts  `json:"migrations"`
}

// Summary describes the current state document. Journals are sorted by name.
func (s *Store) Summary(ctx context.Context) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadLocked(ctx)
	out := Summary{
		LastProcessed: st.LastProcessed,
		Journals:      make([]JournalSummary, 0, len(st.Journals)),
		Migrations: MigrationCounts{
			Pending:   len(st.Migrations.Pending),
			Completed: len(st.Migrations.Completed),
		},
	}
	for name, snap := range st.Journals {
		out.Journals = append(out.Journals, JournalSummary{
			Name:         name,
			LastExport:   snap.LastExport,
			TotalEntries: snap.TotalEntries,
		})
	}
	sort.Slice(out.Journals, func(i, j int) bool { return out.Journals[i].Name < out.Journals[j].Name })
	return out
}
