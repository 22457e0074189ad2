// Package session holds the recognizer's screen state: the transcript of
// recognized words and the capture controls, mutated only through actions.
package session

import (
	"strings"

	"github.com/teslashibe/go-signspeak/pkg/camera"
)

// Action is a discrete state transition.
type Action interface {
	// Name identifies the action in logs and events.
	Name() string
}

// AppendToken appends a recognized word unless it repeats the last one.
type AppendToken struct {
	Token string
	// Seq is the cycle sequence number that produced the token.
	// Zero means unsequenced and is never considered stale.
	Seq uint64
}

// Undo removes the last transcript entry.
type Undo struct{}

// ToggleActive flips the recording flag.
type ToggleActive struct{}

// SetActive sets the recording flag explicitly.
type SetActive struct{ Active bool }

// FlipFacing swaps between back and front cameras.
type FlipFacing struct{}

// Reset restores the initial state, keeping the facing selector and the
// sequence watermark.
type Reset struct{}

func (AppendToken) Name() string  { return "APPEND_TOKEN" }
func (Undo) Name() string         { return "UNDO" }
func (ToggleActive) Name() string { return "TOGGLE_ACTIVE" }
func (SetActive) Name() string    { return "SET_ACTIVE" }
func (FlipFacing) Name() string   { return "FLIP_FACING" }
func (Reset) Name() string        { return "RESET" }

// Ordering decides how results of overlapping cycles are applied.
type Ordering string

const (
	// OrderLatest drops results from cycles older than the last applied one.
	OrderLatest Ordering = "latest"
	// OrderSerial allows one cycle in flight; results arrive in order.
	OrderSerial Ordering = "serial"
	// OrderNone applies results in completion order.
	OrderNone Ordering = "none"
)

// ParseOrdering parses an ordering name. Empty selects OrderLatest.
func ParseOrdering(s string) (Ordering, bool) {
	switch o := Ordering(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return OrderLatest, true
	case OrderLatest, OrderSerial, OrderNone:
		return o, true
	}
	return "", false
}

// Effect describes what a dispatched action did.
type Effect int

const (
	// EffectNone means the state was left unchanged.
	EffectNone Effect = iota
	// EffectChanged means the state changed.
	EffectChanged
	// EffectDeduped means a token equal to the last entry was dropped.
	EffectDeduped
	// EffectStale means a token from an outdated cycle was dropped.
	EffectStale
)

func (e Effect) String() string {
	switch e {
	case EffectChanged:
		return "changed"
	case EffectDeduped:
		return "deduped"
	case EffectStale:
		return "stale"
	default:
		return "none"
	}
}

// State is an immutable snapshot of the screen state.
type State struct {
	Transcript []string      `json:"transcript"`
	Active     bool          `json:"active"`
	Facing     camera.Facing `json:"facing"`

	// LastAppliedSeq is the newest cycle whose result was accepted.
	LastAppliedSeq uint64 `json:"last_applied_seq"`
}

// Last returns the final transcript entry.
func (s State) Last() (string, bool) {
	if len(s.Transcript) == 0 {
		return "", false
	}
	return s.Transcript[len(s.Transcript)-1], true
}

// Reduce applies a to s. It never modifies s.Transcript in place, so earlier
// snapshots remain valid.
func Reduce(s State, a Action, order Ordering) (State, Effect) {
	switch act := a.(type) {
	case AppendToken:
		if act.Token == "" {
			return s, EffectNone
		}
		if order == OrderLatest && act.Seq != 0 && act.Seq <= s.LastAppliedSeq {
			return s, EffectStale
		}
		if act.Seq > s.LastAppliedSeq {
			s.LastAppliedSeq = act.Seq
		}
		if last, ok := s.Last(); ok && last == act.Token {
			return s, EffectDeduped
		}
		next := make([]string, len(s.Transcript), len(s.Transcript)+1)
		copy(next, s.Transcript)
		s.Transcript = append(next, act.Token)
		return s, EffectChanged

	case Undo:
		if len(s.Transcript) == 0 {
			return s, EffectNone
		}
		s.Transcript = s.Transcript[:len(s.Transcript)-1:len(s.Transcript)-1]
		return s, EffectChanged

	case ToggleActive:
		s.Active = !s.Active
		return s, EffectChanged

	case SetActive:
		if s.Active == act.Active {
			return s, EffectNone
		}
		s.Active = act.Active
		return s, EffectChanged

	case FlipFacing:
		s.Facing = s.Facing.Toggle()
		return s, EffectChanged

	case Reset:
		return State{Facing: s.Facing, LastAppliedSeq: s.LastAppliedSeq}, EffectChanged
	}

	return s, EffectNone
}
