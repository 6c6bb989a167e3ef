// Package terminal decides when an episode ends.
package terminal

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/immortal/arena"
)

// ErrInvalidSteps is returned for non-positive step limits.
var ErrInvalidSteps = errors.New("step limit must be positive")

// Condition is evaluated once per step; Reset is called at each episode start.
type Condition interface {
	Reset(initial *arena.GameState)
	IsTerminal(state *arena.GameState) bool
}

// Timeout ends the episode after a fixed number of steps.
type Timeout struct {
	maxSteps int
	steps    int
}

// NewTimeout creates a timeout condition.
func NewTimeout(maxSteps int) (*Timeout, error) {
	if maxSteps <= 0 {
		return nil, fmt.Errorf("timeout: %w (got %d)", ErrInvalidSteps, maxSteps)
	}
	return &Timeout{maxSteps: maxSteps}, nil
}

func (c *Timeout) Reset(*arena.GameState) { c.steps = 0 }

func (c *Timeout) IsTerminal(*arena.GameState) bool {
	c.steps++
	return c.steps >= c.maxSteps
}

// NoTouchTimeout ends the episode when nobody touches the ball for maxSteps
// consecutive steps.
type NoTouchTimeout struct {
	maxSteps int
	steps    int
}

// NewNoTouchTimeout creates a no-touch timeout condition.
func NewNoTouchTimeout(maxSteps int) (*NoTouchTimeout, error) {
	if maxSteps <= 0 {
		return nil, fmt.Errorf("no-touch timeout: %w (got %d)", ErrInvalidSteps, maxSteps)
	}
	return &NoTouchTimeout{maxSteps: maxSteps}, nil
}

func (c *NoTouchTimeout) Reset(*arena.GameState) { c.steps = 0 }

func (c *NoTouchTimeout) IsTerminal(state *arena.GameState) bool {
	if state.AnyTouched() {
		c.steps = 0
		return false
	}
	c.steps++
	return c.steps >= c.maxSteps
}

// GoalScored ends the episode when either team's score changes.
type GoalScored struct {
	blue, orange int
}

// NewGoalScored creates a goal condition.
func NewGoalScored() *GoalScored {
	return &GoalScored{}
}

// Reset takes the initial scores as the baseline, so episodes that start
// mid-match do not end on their first step.
func (c *GoalScored) Reset(initial *arena.GameState) {
	c.blue, c.orange = 0, 0
	if initial != nil {
		c.blue, c.orange = initial.BlueScore, initial.OrangeScore
	}
}

func (c *GoalScored) IsTerminal(state *arena.GameState) bool {
	if state.BlueScore != c.blue || state.OrangeScore != c.orange {
		c.blue, c.orange = state.BlueScore, state.OrangeScore
		return true
	}
	return false
}

// Named pairs a condition with the reason reported when it fires.
type Named struct {
	Name      string
	Condition Condition
}

// Set ends the episode when any of its conditions does.
type Set struct {
	conditions []Named
}

// Any combines conditions. All of them are evaluated every step so their
// counters stay in sync regardless of order.
func Any(conditions ...Named) *Set {
	out := make([]Named, len(conditions))
	copy(out, conditions)
	return &Set{conditions: out}
}

func (s *Set) Reset(initial *arena.GameState) {
	for _, c := range s.conditions {
		c.Condition.Reset(initial)
	}
}

func (s *Set) IsTerminal(state *arena.GameState) bool {
	_, done := s.Check(state)
	return done
}

// Check evaluates every condition and returns the name of the first one
// (in registration order) that reported terminal.
func (s *Set) Check(state *arena.GameState) (string, bool) {
	reason := ""
	for _, c := range s.conditions {
		if c.Condition.IsTerminal(state) && reason == "" {
			reason = c.Name
		}
	}
	return reason, reason != ""
}
