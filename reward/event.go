package reward

import (
	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/arena"
)

// EventWeights holds the reward paid per unit increase of each match event.
type EventWeights struct {
	Goal        float64
	TeamGoal    float64
	Concede     float64
	Touch       float64
	Shot        float64
	Save        float64
	Demo        float64
	BoostPickup float64
}

// eventCounters is the per-car snapshot compared between steps.
type eventCounters [8]float64

func (w EventWeights) vector() eventCounters {
	return eventCounters{w.Goal, w.TeamGoal, w.Concede, w.Touch, w.Shot, w.Save, w.Demo, w.BoostPickup}
}

func extractCounters(player *arena.PlayerData, state *arena.GameState) eventCounters {
	team, opponent := state.TeamScores(player.TeamNum)
	touched := 0.0
	if player.BallTouched {
		touched = 1
	}
	return eventCounters{
		float64(player.MatchGoals),
		float64(team),
		float64(opponent),
		touched,
		float64(player.MatchShots),
		float64(player.MatchSaves),
		float64(player.MatchDemolishes),
		player.BoostAmount,
	}
}

// Event rewards increases in match counters since the previous step.
// Decreases (a counter reset, boost spent) are ignored.
type Event struct {
	weights eventCounters
	last    map[int]eventCounters
}

// NewEvent creates an event reward.
func NewEvent(w EventWeights) *Event {
	return &Event{
		weights: w.vector(),
		last:    make(map[int]eventCounters),
	}
}

// Reset records every player's counters from the initial state.
func (r *Event) Reset(initial *arena.GameState) {
	clear(r.last)
	if initial == nil {
		return
	}
	for i := range initial.Players {
		p := &initial.Players[i]
		r.last[p.CarID] = extractCounters(p, initial)
	}
}

// Compute implements Component.
func (r *Event) Compute(player *arena.PlayerData, state *arena.GameState, _ action.Vector) float64 {
	current := extractCounters(player, state)
	prev, ok := r.last[player.CarID]
	r.last[player.CarID] = current
	if !ok {
		// First sighting establishes the baseline.
		return 0
	}

	var reward float64
	for i := range current {
		if d := current[i] - prev[i]; d > 0 {
			reward += r.weights[i] * d
		}
	}
	return reward
}
