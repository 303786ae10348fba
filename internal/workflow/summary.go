package workflow

import (
	"github.com/dmitrijs2005/journalsync/internal/diff"
	"github.com/dmitrijs2005/journalsync/internal/journal"
	"github.com/dmitrijs2005/journalsync/internal/state"
	"github.com/dmitrijs2005/journalsync/internal/timex"
)

const ActionMovedToPublished = "moved_to_published"

// Summary is the result of one workflow run.
type Summary struct {
	RunID     string             `json:"runId"`
	Timestamp timex.Timestamp    `json:"timestamp"`
	Journals  []JournalOutcome   `json:"journals"`
	Processed Processed          `json:"processed"`
	Entries   EntryLists         `json:"entries"`
	Movements Movements          `json:"movements"`
	Commands  []MigrationCommand `json:"commands"`

	RequestedMigration  string   `json:"requestedMigration,omitempty"`
	CompletedMigrations []string `json:"completedMigrations"`

	Lifecycle []EntryLifecycle `json:"lifecycle"`
	State     state.Summary    `json:"state"`
}

// JournalOutcome reports one journal. Diff is nil when the export failed.
type JournalOutcome struct {
	Name     string         `json:"name"`
	Entries  int            `json:"entries"`
	Artifact string         `json:"artifact,omitempty"`
	Archive  string         `json:"archive,omitempty"`
	Duration timex.Duration `json:"duration"`
	Error    string         `json:"error,omitempty"`
	Diff     *diff.Counts   `json:"diff,omitempty"`
}

type Processed struct {
	NewEntries   int `json:"newEntries"`
	MovedEntries int `json:"movedEntries"`
	Errors       int `json:"errors"`
}

type EntryLists struct {
	New   []journal.Ref `json:"new"`
	Moved []MoveAction  `json:"moved"`
}

type MoveAction struct {
	UUID   string `json:"uuid"`
	Title  string `json:"title"`
	Action string `json:"action"`
}

// Journal returns the outcome for name, or nil.
func (s *Summary) Journal(name string) *JournalOutcome {
	for i := range s.Journals {
		if s.Journals[i].Name == name {
			return &s.Journals[i]
		}
	}
	return nil
}

func moveActions(entries []journal.Entry) []MoveAction {
	out := make([]MoveAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, MoveAction{UUID: e.UUID, Title: e.DisplayTitle(), Action: ActionMovedToPublished})
	}
	return out
}
