// Package reward turns per-step game snapshots into the scalar training signal.
//
// A reward is a weighted sum of independent components. Components may keep
// per-episode state (cooldowns, counter baselines); that state belongs to a
// single agent's component set and is only cleared through Reset.
package reward

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/arena"
)

// ErrInvalidConfig is wrapped by every construction-time validation failure.
var ErrInvalidConfig = errors.New("invalid reward config")

// Component is a single reward rule.
type Component interface {
	// Reset is called once at each episode boundary with the initial state.
	Reset(initial *arena.GameState)
	// Compute returns this step's reward for player. It must not fail;
	// degenerate inputs yield a defined value (usually 0).
	Compute(player *arena.PlayerData, state *arena.GameState, previous action.Vector) float64
}

// Trigger is implemented by components that pay out on discrete events.
// Fired reports whether the most recent Compute triggered, independent of
// the amount paid.
type Trigger interface {
	Fired() bool
}

// Entry is a named, weighted component.
type Entry struct {
	Name      string
	Component Component
	Weight    float64
}

// Combined sums weighted component rewards.
type Combined struct {
	entries []Entry
}

// NewCombined validates entries and returns the combined reward.
func NewCombined(entries ...Entry) (*Combined, error) {
	out := make([]Entry, len(entries))
	copy(out, entries)
	for i, e := range out {
		if e.Component == nil {
			return nil, fmt.Errorf("%w: entry %d (%q) has no component", ErrInvalidConfig, i, e.Name)
		}
		if !finite(e.Weight) {
			return nil, fmt.Errorf("%w: entry %d (%q) weight %v is not finite", ErrInvalidConfig, i, e.Name, e.Weight)
		}
		if e.Name == "" {
			out[i].Name = fmt.Sprintf("component_%d", i)
		}
	}
	return &Combined{entries: out}, nil
}

// FromZipped pairs components with weights by position. names may be nil.
func FromZipped(components []Component, weights []float64, names []string) (*Combined, error) {
	if len(components) != len(weights) {
		return nil, fmt.Errorf("%w: %d components but %d weights", ErrInvalidConfig, len(components), len(weights))
	}
	if names != nil && len(names) != len(components) {
		return nil, fmt.Errorf("%w: %d components but %d names", ErrInvalidConfig, len(components), len(names))
	}
	entries := make([]Entry, len(components))
	for i := range components {
		entries[i] = Entry{Component: components[i], Weight: weights[i]}
		if names != nil {
			entries[i].Name = names[i]
		}
	}
	return NewCombined(entries...)
}

// Len returns the number of components.
func (c *Combined) Len() int {
	return len(c.entries)
}

// Names returns component names in evaluation order.
func (c *Combined) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Weights returns component weights in evaluation order.
func (c *Combined) Weights() []float64 {
	w := make([]float64, len(c.entries))
	for i, e := range c.entries {
		w[i] = e.Weight
	}
	return w
}

// Reset forwards the episode boundary to every component.
func (c *Combined) Reset(initial *arena.GameState) {
	for _, e := range c.entries {
		e.Component.Reset(initial)
	}
}

// Compute returns the weighted sum of all components.
func (c *Combined) Compute(player *arena.PlayerData, state *arena.GameState, previous action.Vector) float64 {
	return c.ComputeBreakdown(player, state, previous, nil)
}

// ComputeBreakdown is Compute that also stores each weighted contribution in
// dst, which must be nil or at least Len() long.
func (c *Combined) ComputeBreakdown(player *arena.PlayerData, state *arena.GameState, previous action.Vector, dst []float64) float64 {
	var total float64
	for i, e := range c.entries {
		r := e.Component.Compute(player, state, previous)
		if !finite(r) {
			r = 0
		}
		contrib := e.Weight * r
		if dst != nil {
			dst[i] = contrib
		}
		total += contrib
	}
	return total
}

// Fired stores, per component, whether it triggered on the last Compute.
// Components that are not a Trigger report false. dst must be nil or at
// least Len() long; a nil dst is allocated.
func (c *Combined) Fired(dst []bool) []bool {
	if dst == nil {
		dst = make([]bool, len(c.entries))
	}
	for i, e := range c.entries {
		t, ok := e.Component.(Trigger)
		dst[i] = ok && t.Fired()
	}
	return dst
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
