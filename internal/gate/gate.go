// Package gate holds the single on/off switch shared by every diff session.
package gate

import "sync/atomic"

var labels = map[bool]string{
	false: "Turn on Diff JAM",
	true:  "Turn off Diff JAM",
}

// Gate is a process-wide toggle. The zero value is off.
// Hand the same *Gate to every session that should obey it.
type Gate struct {
	on atomic.Bool
}

// New returns a gate in the given initial state.
func New(on bool) *Gate {
	g := &Gate{}
	g.on.Store(on)
	return g
}

func (g *Gate) IsOn() bool {
	return g.on.Load()
}

// Toggle flips the gate and returns the new state.
func (g *Gate) Toggle() bool {
	for {
		old := g.on.Load()
		if g.on.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Set forces the gate into a state.
func (g *Gate) Set(on bool) {
	g.on.Store(on)
}

// Label is the text a host shows on its toggle control for the current state.
func (g *Gate) Label() string {
	return labels[g.IsOn()]
}
