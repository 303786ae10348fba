package workflow

import "sort"

// LifecycleState places an entry in the publishing workflow by where it is
// currently seen.
type LifecycleState string

const (
	StateDraft     LifecycleState = "draft"
	StatePublic    LifecycleState = "public"
	StateMigrating LifecycleState = "migrating"
	StatePublished LifecycleState = "published"
)

// validTransitions is the transition matrix. Staying in a state is always
// allowed.
var validTransitions = map[LifecycleState]map[LifecycleState]bool{
	StateDraft:     {StatePublic: true},
	StatePublic:    {StateMigrating: true, StatePublished: true},
	StateMigrating: {StatePublished: true, StatePublic: true},
	StatePublished: {StateMigrating: true},
}

// Classify derives the state from journal membership.
func Classify(inPublic, inPublished bool) LifecycleState {
	switch {
	case inPublic && inPublished:
		return StateMigrating
	case inPublic:
		return StatePublic
	case inPublished:
		return StatePublished
	default:
		return StateDraft
	}
}

func ValidTransition(from, to LifecycleState) bool {
	return from == to || validTransitions[from][to]
}

// EntryLifecycle is the observed state of one entry. Previous is empty when
// nothing was known about the journals before this run.
type EntryLifecycle struct {
	UUID     string         `json:"uuid"`
	Previous LifecycleState `json:"previous,omitempty"`
	State    LifecycleState `json:"state"`
	Valid    bool           `json:"valid"`
}

type membership struct {
	public, published map[string]bool
}

func (m membership) state(uuid string) LifecycleState {
	return Classify(m.public[uuid], m.published[uuid])
}

// lifecycle evaluates every uuid seen before or now, sorted by uuid. With
// known false, previous membership is ignored and no transition is judged.
func lifecycle(prev, cur membership, known bool) []EntryLifecycle {
	seen := map[string]struct{}{}
	for _, m := range []map[string]bool{prev.public, prev.published, cur.public, cur.published} {
		for id := range m {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]EntryLifecycle, 0, len(ids))
	for _, id := range ids {
		el := EntryLifecycle{UUID: id, State: cur.state(id), Valid: true}
		if known {
			el.Previous = prev.state(id)
			el.Valid = ValidTransition(el.Previous, el.State)
		}
		out = append(out, el)
	}
	return out
}
