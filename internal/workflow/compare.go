package workflow

import (
	"fmt"

	"github.com/dmitrijs2005/journalsync/internal/journal"
	"github.com/dmitrijs2005/journalsync/internal/state"
	"github.com/dmitrijs2005/journalsync/internal/timex"
)

// CompareJournals splits the public entries into those not yet in the
// published journal and those already there. Both keep the public order.
func CompareJournals(public, published []journal.Entry) (newEntries, toMove []journal.Entry) {
	inPublished := uuidSet(published)
	newEntries, toMove = []journal.Entry{}, []journal.Entry{}
	for _, e := range public {
		if inPublished[e.UUID] {
			toMove = append(toMove, e)
		} else {
			newEntries = append(newEntries, e)
		}
	}
	return newEntries, toMove
}

// Movement is an entry that changed journals since the previous run,
// described by what the previous snapshot knew about it.
type Movement struct {
	UUID string `json:"uuid"`
	state.SnapshotEntry
	DetectedAt timex.Timestamp `json:"detectedAt"`
}

type Movements struct {
	MovedToPublished   []Movement    `json:"movedToPublished"`
	MovedFromPublished []Movement    `json:"movedFromPublished"`
	NewInPublic        []journal.Ref `json:"newInPublic"`
	NewInPublished     []journal.Ref `json:"newInPublished"`
}

// DetectJournalMovements compares the current exports with the previous
// snapshots. An entry moved to the published journal when it was only in
// the public journal before and is in the published one now, whether or not
// it is still public; movedFromPublished is the mirror case. A nil snapshot
// counts as empty.
func DetectJournalMovements(prevPublic, prevPublished *state.JournalSnapshot, public, published []journal.Entry, now timex.Timestamp) Movements {
	curPublic, curPublished := uuidSet(public), uuidSet(published)
	m := Movements{
		MovedToPublished:   []Movement{},
		MovedFromPublished: []Movement{},
		NewInPublic:        []journal.Ref{},
		NewInPublished:     []journal.Ref{},
	}

	if prevPublic != nil {
		for _, id := range prevPublic.UUIDs() {
			if curPublished[id] && !known(prevPublished, id) {
				m.MovedToPublished = append(m.MovedToPublished, Movement{UUID: id, SnapshotEntry: prevPublic.Entries[id], DetectedAt: now})
			}
		}
	}
	if prevPublished != nil {
		for _, id := range prevPublished.UUIDs() {
			if curPublic[id] && !known(prevPublic, id) {
				m.MovedFromPublished = append(m.MovedFromPublished, Movement{UUID: id, SnapshotEntry: prevPublished.Entries[id], DetectedAt: now})
			}
		}
	}

	for _, e := range public {
		if !known(prevPublic, e.UUID) {
			m.NewInPublic = append(m.NewInPublic, e.Ref())
		}
	}
	for _, e := range published {
		if !known(prevPublished, e.UUID) {
			m.NewInPublished = append(m.NewInPublished, e.Ref())
		}
	}
	return m
}

const ActionMoveToPublished = "MOVE_TO_PUBLISHED"

// MigrationCommand is a manual step for moving one entry between journals.
type MigrationCommand struct {
	UUID    string `json:"uuid"`
	Title   string `json:"title"`
	Command string `json:"command"`
	Action  string `json:"action"`
}

func MigrationCommands(entries []journal.Entry) []MigrationCommand {
	out := make([]MigrationCommand, 0, len(entries))
	for _, e := range entries {
		label := e.DisplayTitle()
		if label == "" {
			label = e.UUID
		}
		out = append(out, MigrationCommand{
			UUID:    e.UUID,
			Title:   e.DisplayTitle(),
			Command: fmt.Sprintf("# Move %q from Public to Published", label),
			Action:  ActionMoveToPublished,
		})
	}
	return out
}

func known(s *state.JournalSnapshot, id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Entries[id]
	return ok
}

func uuidSet(entries []journal.Entry) map[string]bool {
	m := make(map[string]bool, len(entries))
	for _, e := range entries {
		m[e.UUID] = true
	}
	return m
}

func snapshotSet(s *state.JournalSnapshot) map[string]bool {
	m := map[string]bool{}
	if s == nil {
		return m
	}
	for id := range s.Entries {
		m[id] = true
	}
	return m
}
