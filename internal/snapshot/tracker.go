// Package snapshot keeps the rolling previous/current payload pair of one
// diff session.
package snapshot

import (
	"github.com/dgnsrekt/diffjam/internal/classify"
	"github.com/dgnsrekt/diffjam/internal/gate"
	"github.com/dgnsrekt/diffjam/internal/types"
)

// State is how many slots of a Pair hold distinct observations.
type State int

const (
	Empty State = iota
	OneFilled
	Full
)

func (s State) String() string {
	switch s {
	case OneFilled:
		return "one-filled"
	case Full:
		return "full"
	}
	return "empty"
}

// Pair holds the two most recent distinct payloads.
type Pair struct {
	Previous types.Payload
	Current  types.Payload
	State    State
}

// Tracker owns one Pair. It is not safe for concurrent use; the host feeds it
// one observation at a time.
type Tracker struct {
	gate     *gate.Gate
	editable bool
	pair     Pair
}

// NewTracker returns a tracker for a pane. Editable panes are never compared.
func NewTracker(g *gate.Gate, editable bool) *Tracker {
	return &Tracker{gate: g, editable: editable}
}

// Observe records p and reports whether the diff view should be shown for it.
// With the gate off nothing is recorded.
func (t *Tracker) Observe(p types.Payload) bool {
	return t.ObserveAs(p, t.gate != nil && t.gate.IsOn(), t.editable)
}

// ObserveAs is Observe with the gate state and the pane's editability given
// by the caller, so one delivery acts on a single reading of the gate. An
// editable observation is still recorded but never shows the view; a tracker
// created editable stays editable.
func (t *Tracker) ObserveAs(p types.Payload, gateOn, editable bool) bool {
	if !gateOn || p.Empty() {
		return false
	}

	if t.pair.State == Empty {
		t.pair.Current = p
		t.pair.State = OneFilled
		return false
	}

	if !t.pair.Current.Equal(p) {
		t.pair.Previous = t.pair.Current
		t.pair.Current = p
		t.pair.State = Full
	}

	if t.pair.State != Full {
		return false
	}
	if p.IsRequest || editable || t.editable {
		return false
	}
	return classify.IsComparable(p)
}

// Pair returns a copy of the tracked pair.
func (t *Tracker) Pair() Pair {
	return t.pair
}

// Editable reports whether the tracked pane accepts user edits.
func (t *Tracker) Editable() bool {
	return t.editable
}

// Reset drops both snapshots.
func (t *Tracker) Reset() {
	t.pair = Pair{}
}
