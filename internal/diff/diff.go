// Package diff classifies the entries of a fresh export against the last
// stored snapshot of the same journal.
package diff

import (
	"github.com/dmitrijs2005/journalsync/internal/journal"
	"github.com/dmitrijs2005/journalsync/internal/state"
)

// Removed is an entry present in the previous snapshot but missing from the
// current export, described by its last known snapshot fields.
type Removed struct {
	UUID string `json:"uuid"`
	state.SnapshotEntry
}

// Result partitions current ∪ previous by uuid: every uuid lands in exactly
// one bucket.
type Result struct {
	Journal   string          `json:"journal"`
	Added     []journal.Entry `json:"added"`
	Modified  []journal.Entry `json:"modified"`
	Unchanged []journal.Entry `json:"unchanged"`
	Removed   []Removed       `json:"removed"`
}

type Counts struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

func (r Result) Counts() Counts {
	return Counts{
		Added:     len(r.Added),
		Modified:  len(r.Modified),
		Unchanged: len(r.Unchanged),
		Removed:   len(r.Removed),
	}
}

// HasChanges reports whether anything was added, modified or removed.
func (r Result) HasChanges() bool {
	return len(r.Added)+len(r.Modified)+len(r.Removed) > 0
}

// Compute classifies current against previous. A nil previous means the
// journal was never exported and every entry is added.
//
// Added, Modified and Unchanged keep the order of current; Removed keeps
// the order of the previous snapshot. When current repeats a uuid only the
// first occurrence counts.
// An entry is modified when its effective modification time differs from
// the stored one; timestamps are compared as instants, not strings.
func Compute(journalName string, current []journal.Entry, previous *state.JournalSnapshot) Result {
	res := Result{
		Journal:   journalName,
		Added:     []journal.Entry{},
		Modified:  []journal.Entry{},
		Unchanged: []journal.Entry{},
		Removed:   []Removed{},
	}

	var prev map[string]state.SnapshotEntry
	if previous != nil {
		prev = previous.Entries
	}

	seen := make(map[string]struct{}, len(current))
	for _, e := range current {
		if _, dup := seen[e.UUID]; dup {
			continue
		}
		seen[e.UUID] = struct{}{}

		old, ok := prev[e.UUID]
		switch {
		case !ok:
			res.Added = append(res.Added, e)
		case !old.ModifiedDate.Equal(e.EffectiveModified()):
			res.Modified = append(res.Modified, e)
		default:
			res.Unchanged = append(res.Unchanged, e)
		}
	}

	if previous != nil {
		for _, uuid := range previous.UUIDs() {
			if _, ok := seen[uuid]; !ok {
				res.Removed = append(res.Removed, Removed{UUID: uuid, SnapshotEntry: prev[uuid]})
			}
		}
	}

	return res
}
