// Package history records one row per workflow run, with per-journal
// outcomes, in a local SQLite database.
package history

import "time"

type JournalStatus string

const (
	StatusExported JournalStatus = "exported"
	StatusFailed   JournalStatus = "failed"
)

type JournalRun struct {
	Journal   string        `json:"journal"`
	Status    JournalStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	Artifact  string        `json:"artifact,omitempty"`
	Added     int           `json:"added"`
	Modified  int           `json:"modified"`
	Unchanged int           `json:"unchanged"`
	Removed   int           `json:"removed"`
	Duration  time.Duration `json:"duration"`
}

// Run is one workflow execution.
type Run struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
	MigrationID string       `json:"migrationId,omitempty"`
	Journals    []JournalRun `json:"journals"`
}

// Errors counts the journals that failed.
func (r Run) Errors() int {
	n := 0
	for _, j := range r.Journals {
		if j.Status == StatusFailed {
			n++
		}
	}
	return n
}
