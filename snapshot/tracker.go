// Package snapshot retires large browser snapshot artifacts after a
// bounded number of subsequent turns, or immediately once a fresher
// snapshot appears. At most one snapshot is ever active: the model only
// needs the latest view of the page, and every stale copy it drags along
// is context the budget cannot spend elsewhere.
package snapshot

import (
	"sort"

	"github.com/youssefsiam38/contextpg/types"
)

// ExpiredText is the fixed placeholder written over an expired snapshot.
// It must stay byte-identical across turns and sessions so prompt caches
// remain stable; never interpolate counters or timestamps into it.
const ExpiredText = "[snapshot expired; capture a new snapshot if the page content is needed]"

// Settings controls the expiry state machine.
type Settings struct {
	// Enabled turns snapshot expiry on.
	Enabled bool

	// MaxChecks is the number of subsequent tool results and user
	// messages a snapshot survives before it expires.
	MaxChecks int
}

// Phase is the lifecycle phase of a snapshot artifact.
//
// State transitions per artifact id:
//
//	untracked ──────────────┐
//	    │ (register)        │
//	    v                   │
//	tracked ────────────────┤
//	    │ (calls since ≥ MaxChecks, or superseded)
//	    v                   │
//	expired  ← terminal, persisted across sessions
type Phase string

const (
	PhaseUntracked Phase = "untracked"
	PhaseTracked   Phase = "tracked"
	PhaseExpired   Phase = "expired"
)

// Entry is the tracked-phase record for one artifact.
type Entry struct {
	// ID is the artifact id: the tool call id of the snapshot capture.
	ID string

	// CallsSince counts tool results and user messages observed since
	// the snapshot was registered.
	CallsSince int
}

// EventKind identifies a state machine transition.
type EventKind string

const (
	// EventAdvance adds Count to every tracked entry's CallsSince.
	EventAdvance EventKind = "advance"

	// EventRegister moves an untracked artifact to tracked with
	// CallsSince zero. Expired ids are never re-registered.
	EventRegister EventKind = "register"

	// EventSupersede forces every tracked entry's CallsSince up to
	// Count, guaranteeing expiry on the same pass. Fired when a fresh
	// snapshot arrives.
	EventSupersede EventKind = "supersede"

	// EventExpire moves an artifact to the terminal expired phase.
	EventExpire EventKind = "expire"
)

// Event is a single state machine input.
type Event struct {
	Kind  EventKind
	ID    string
	Count int
}

// State holds the per-session tracker state: tracked entries, the
// monotonic expired-id set, and the turn-count watermarks used to compute
// increments between engine invocations.
type State struct {
	tracked map[string]*Entry
	expired map[string]struct{}

	// Watermarks: transcript counts observed on the previous tick.
	seenToolResults int
	seenUserTurns   int
}

// NewState creates an empty tracker state.
func NewState() *State {
	return &State{
		tracked: make(map[string]*Entry),
		expired: make(map[string]struct{}),
	}
}

// Apply runs one state machine transition.
func (s *State) Apply(ev Event) {
	switch ev.Kind {
	case EventAdvance:
		for _, e := range s.tracked {
			e.CallsSince += ev.Count
		}
	case EventRegister:
		if _, gone := s.expired[ev.ID]; gone {
			return
		}
		if _, ok := s.tracked[ev.ID]; ok {
			return
		}
		s.tracked[ev.ID] = &Entry{ID: ev.ID}
	case EventSupersede:
		for _, e := range s.tracked {
			if e.CallsSince < ev.Count {
				e.CallsSince = ev.Count
			}
		}
	case EventExpire:
		delete(s.tracked, ev.ID)
		s.expired[ev.ID] = struct{}{}
	}
}

// Phase returns the lifecycle phase of an artifact id.
func (s *State) Phase(id string) Phase {
	if _, ok := s.expired[id]; ok {
		return PhaseExpired
	}
	if _, ok := s.tracked[id]; ok {
		return PhaseTracked
	}
	return PhaseUntracked
}

// Tracked returns the tracked entries, ordered by id for determinism.
func (s *State) Tracked() []Entry {
	out := make([]Entry, 0, len(s.tracked))
	for _, e := range s.tracked {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ExpiredIDs returns the expired-id set, sorted, for persistence.
func (s *State) ExpiredIDs() []string {
	out := make([]string, 0, len(s.expired))
	for id := range s.expired {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadExpired merges ids from a persisted record into the expired set.
// Loaded ids are permanently skipped by Tick even when their tool result
// content still looks live in the transcript.
func (s *State) LoadExpired(ids []string) {
	for _, id := range ids {
		s.expired[id] = struct{}{}
		delete(s.tracked, id)
	}
}

// DetectFunc reports whether a tool result turn is a snapshot artifact.
// The transcript is supplied so the detector can resolve the originating
// tool call.
type DetectFunc func(transcript []*types.Turn, turn *types.Turn) bool

// Tick runs one expiry pass over the transcript, mutating state in place.
//
// It returns the transcript unchanged (same identity) when nothing
// expired, otherwise a copy with only the affected turns replaced by the
// fixed placeholder, plus the ids expired on this pass.
func Tick(transcript []*types.Turn, settings Settings, state *State, detect DetectFunc) ([]*types.Turn, []string) {
	if !settings.Enabled || state == nil || detect == nil {
		return transcript, nil
	}

	// Advance tracked counters by the number of tool results and user
	// messages that arrived since the previous tick.
	toolResults := types.Count(transcript, types.RoleToolResult)
	userTurns := types.Count(transcript, types.RoleUser)
	increment := (toolResults - state.seenToolResults) + (userTurns - state.seenUserTurns)
	state.seenToolResults = toolResults
	state.seenUserTurns = userTurns
	if increment > 0 {
		state.Apply(Event{Kind: EventAdvance, Count: increment})
	}

	// Collect unseen snapshot candidates in transcript order, and index
	// every tool result so expired artifacts can be located later.
	var candidates []string
	turnIndex := make(map[string]int)
	for i, t := range transcript {
		if t.Role != types.RoleToolResult || t.ToolUseID == "" {
			continue
		}
		if _, dup := turnIndex[t.ToolUseID]; !dup {
			turnIndex[t.ToolUseID] = i
		}
		if state.Phase(t.ToolUseID) != PhaseUntracked {
			continue
		}
		if detect(transcript, t) {
			candidates = append(candidates, t.ToolUseID)
		}
	}

	// A new snapshot supersedes everything already tracked regardless of
	// age; force them over the threshold so they expire this pass.
	if len(candidates) > 0 && len(state.tracked) > 0 {
		state.Apply(Event{Kind: EventSupersede, Count: settings.MaxChecks})
	}

	// When several snapshots appear in one pass only the last survives;
	// the earlier ones expire without ever being tracked.
	var immediate []string
	if len(candidates) > 0 {
		immediate = candidates[:len(candidates)-1]
		state.Apply(Event{Kind: EventRegister, ID: candidates[len(candidates)-1]})
	}

	var expiredNow []string
	expiredNow = append(expiredNow, immediate...)
	for _, e := range state.Tracked() {
		if e.CallsSince >= settings.MaxChecks {
			expiredNow = append(expiredNow, e.ID)
		}
	}
	if len(expiredNow) == 0 {
		return transcript, nil
	}

	out := transcript
	for _, id := range expiredNow {
		state.Apply(Event{Kind: EventExpire, ID: id})
		idx, ok := turnIndex[id]
		if !ok {
			// The artifact's turn is no longer in the transcript; the
			// state transition alone is enough.
			continue
		}
		out = types.ReplaceTurn(transcript, out, idx, transcript[idx].WithText(ExpiredText))
	}
	return out, expiredNow
}
