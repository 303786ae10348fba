package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/journalsync/internal/journal"
	"github.com/dmitrijs2005/journalsync/internal/timex"
)

// SnapshotEntry is what the state remembers about one entry.
type SnapshotEntry struct {
	Title        string          `json:"title"`
	CreationDate timex.Timestamp `json:"creationDate"`
	ModifiedDate timex.Timestamp `json:"modifiedDate"`
	LastSeen     timex.Timestamp `json:"lastSeen"`
}

// JournalSnapshot is the result of the last successful export of a journal.
// Order remembers the export order of Entries; it survives the JSON
// round trip because entries are written and read in that order.
type JournalSnapshot struct {
	LastExport   timex.Timestamp          `json:"lastExport"`
	Entries      map[string]SnapshotEntry `json:"entries"`
	TotalEntries int                      `json:"totalEntries"`
	Order        []string                 `json:"-"`
}

type MigrationStatus string

const (
	StatusPending   MigrationStatus = "pending"
	StatusCompleted MigrationStatus = "completed"
)

// MigrationRecord tracks a request to move entries from the public journal
// to the published one.
type MigrationRecord struct {
	ID               string           `json:"id"`
	Timestamp        timex.Timestamp  `json:"timestamp"`
	Status           MigrationStatus  `json:"status"`
	Entries          []journal.Ref    `json:"entries"`
	CompletedAt      *timex.Timestamp `json:"completedAt,omitempty"`
	CompletedEntries []journal.Ref    `json:"completedEntries,omitempty"`
}

type Migrations struct {
	Pending   []MigrationRecord `json:"pending"`
	Completed []MigrationRecord `json:"completed"`
}

// State is the whole persisted document.
type State struct {
	LastProcessed timex.Timestamp            `json:"lastProcessed"`
	Journals      map[string]JournalSnapshot `json:"journals"`
	Migrations    Migrations                 `json:"migrations"`
}

// Default returns the document used when no usable state file exists.
func Default(journals ...string) *State {
	st := &State{
		Journals: make(map[string]JournalSnapshot, len(journals)),
		Migrations: Migrations{
			Pending:   []MigrationRecord{},
			Completed: []MigrationRecord{},
		},
	}
	for _, name := range journals {
		st.Journals[name] = JournalSnapshot{Entries: map[string]SnapshotEntry{}}
	}
	return st
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := &State{
		LastProcessed: s.LastProcessed,
		Journals:      make(map[string]JournalSnapshot, len(s.Journals)),
		Migrations: Migrations{
			Pending:   cloneRecords(s.Migrations.Pending),
			Completed: cloneRecords(s.Migrations.Completed),
		},
	}
	for name, snap := range s.Journals {
		out.Journals[name] = snap.Clone()
	}
	return out
}

func (j JournalSnapshot) Clone() JournalSnapshot {
	entries := make(map[string]SnapshotEntry, len(j.Entries))
	for k, v := range j.Entries {
		entries[k] = v
	}
	j.Entries = entries
	j.Order = append([]string(nil), j.Order...)
	return j
}

// UUIDs lists the snapshot's entry ids in export order. Ids missing from
// Order (hand-built snapshots) follow, sorted.
func (j JournalSnapshot) UUIDs() []string {
	out := make([]string, 0, len(j.Entries))
	listed := make(map[string]struct{}, len(j.Order))
	for _, id := range j.Order {
		if _, ok := j.Entries[id]; !ok {
			continue
		}
		if _, dup := listed[id]; dup {
			continue
		}
		listed[id] = struct{}{}
		out = append(out, id)
	}

	var rest []string
	for id := range j.Entries {
		if _, ok := listed[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func (j JournalSnapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"lastExport":`)
	le, err := json.Marshal(j.LastExport)
	if err != nil {
		return nil, err
	}
	buf.Write(le)

	buf.WriteString(`,"entries":{`)
	for i, id := range j.UUIDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(j.Entries[id])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString(`},"totalEntries":`)
	buf.WriteString(strconv.Itoa(j.TotalEntries))
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (j *JournalSnapshot) UnmarshalJSON(b []byte) error {
	var aux struct {
		LastExport   timex.Timestamp `json:"lastExport"`
		Entries      json.RawMessage `json:"entries"`
		TotalEntries int             `json:"totalEntries"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*j = JournalSnapshot{LastExport: aux.LastExport, TotalEntries: aux.TotalEntries}
	if len(aux.Entries) == 0 || string(aux.Entries) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(aux.Entries))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("entries must be an object")
	}

	j.Entries = make(map[string]SnapshotEntry)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, _ := tok.(string)
		var e SnapshotEntry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("entry %q: %w", id, err)
		}
		if _, dup := j.Entries[id]; !dup {
			j.Order = append(j.Order, id)
		}
		j.Entries[id] = e
	}
	_, err = dec.Token()
	return err
}

func (m Migrations) Clone() Migrations {
	return Migrations{Pending: cloneRecords(m.Pending), Completed: cloneRecords(m.Completed)}
}

func cloneRecords(in []MigrationRecord) []MigrationRecord {
	out := make([]MigrationRecord, 0, len(in))
	for _, r := range in {
		r.Entries = append([]journal.Ref(nil), r.Entries...)
		if r.CompletedEntries != nil {
			r.CompletedEntries = append([]journal.Ref(nil), r.CompletedEntries...)
		}
		if r.CompletedAt != nil {
			at := *r.CompletedAt
			r.CompletedAt = &at
		}
		out = append(out, r)
	}
	return out
}

// normalize fills nil maps and slices a hand-edited or older file may lack.
func (s *State) normalize(journals []string) {
	if s.Journals == nil {
		s.Journals = make(map[string]JournalSnapshot)
	}
	for _, name := range journals {
		if _, ok := s.Journals[name]; !ok {
			s.Journals[name] = JournalSnapshot{}
		}
	}
	for name, snap := range s.Journals {
		if snap.Entries == nil {
			snap.Entries = map[string]SnapshotEntry{}
			s.Journals[name] = snap
		}
	}
	if s.Migrations.Pending == nil {
		s.Migrations.Pending = []MigrationRecord{}
	}
	if s.Migrations.Completed == nil {
		s.Migrations.Completed = []MigrationRecord{}
	}
}
