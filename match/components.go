package match

import (
	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/reward"
)

// Agent identifies the car an entity controls.
type Agent struct {
	CarID int
	Team  int
	Slot  int // position in the policy batch
}

// Rewards is the agent's private reward component set. Cooldowns and event
// baselines inside it must never be shared with another agent.
type Rewards struct {
	Set       *reward.Combined
	Breakdown []float64 // weighted contributions from the latest step
	Fired     []bool    // triggered components from the latest step
}

// Controls holds the control vector applied since the previous observation.
type Controls struct {
	Previous action.Vector
	Index    int // -1 before the first action of an episode
}

// Return accumulates the agent's reward over the current episode.
type Return struct {
	Total      float64
	Discounted float64
	Discount   float64 // gamma^steps
	Steps      int
	Components []float64
}

func (r *Return) reset(numComponents int) {
	r.Total = 0
	r.Discounted = 0
	r.Discount = 1
	r.Steps = 0
	if cap(r.Components) < numComponents {
		r.Components = make([]float64, numComponents)
	}
	r.Components = r.Components[:numComponents]
	clear(r.Components)
}

func (r *Return) add(total float64, breakdown []float64, gamma float64) {
	r.Total += total
	r.Discounted += r.Discount * total
	r.Discount *= gamma
	r.Steps++
	for i, v := range breakdown {
		r.Components[i] += v
	}
}
