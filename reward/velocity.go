package reward

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/arena"
)

// projectOnto returns the component of v along the direction from -> to,
// and false if from and to coincide.
func projectOnto(v, from, to r3.Vec) (float64, bool) {
	diff := r3.Sub(to, from)
	n := r3.Norm(diff)
	if n == 0 {
		return 0, false
	}
	return r3.Dot(v, diff) / n, true
}

// VelocityPlayerToBall rewards car velocity toward the ball, normalised by
// car max speed to [-1, 1].
type VelocityPlayerToBall struct{}

func (VelocityPlayerToBall) Reset(*arena.GameState) {}

// Compute implements Component.
func (VelocityPlayerToBall) Compute(player *arena.PlayerData, state *arena.GameState, _ action.Vector) float64 {
	car := player.CarData
	proj, ok := projectOnto(car.LinearVelocity, car.Position, state.Ball.Position)
	if !ok {
		return 0
	}
	return proj / arena.CarMaxSpeed
}

// Velocity rewards raw car speed, normalised by car max speed.
type Velocity struct {
	Negative bool // penalise speed instead
}

func (Velocity) Reset(*arena.GameState) {}

// Compute implements Component.
func (r Velocity) Compute(player *arena.PlayerData, _ *arena.GameState, _ action.Vector) float64 {
	speed := r3.Norm(player.CarData.LinearVelocity) / arena.CarMaxSpeed
	if r.Negative {
		return -speed
	}
	return speed
}

// VelocityBallToGoal rewards ball velocity toward the back of the opponent's
// net (or the player's own net when OwnGoal is set), normalised by ball max speed.
type VelocityBallToGoal struct {
	OwnGoal bool
}

func (VelocityBallToGoal) Reset(*arena.GameState) {}

// Compute implements Component.
func (r VelocityBallToGoal) Compute(player *arena.PlayerData, state *arena.GameState, _ action.Vector) float64 {
	target := arena.OpponentGoalBack(player.TeamNum)
	if r.OwnGoal {
		target = arena.OwnGoalBack(player.TeamNum)
	}
	proj, ok := projectOnto(state.Ball.LinearVelocity, state.Ball.Position, target)
	if !ok {
		return 0
	}
	return proj / arena.BallMaxSpeed
}

// Kickoff rewards driving at the ball while it sits on the centre spot.
// The reward is the squared velocity-toward-ball over the squared car max
// speed, so it grows quadratically with approach speed.
type Kickoff struct{}

// NewKickoff creates a kickoff reward.
func NewKickoff() *Kickoff {
	return &Kickoff{}
}

func (*Kickoff) Reset(*arena.GameState) {}

// Compute implements Component.
func (*Kickoff) Compute(player *arena.PlayerData, state *arena.GameState, _ action.Vector) float64 {
	if !state.IsKickoff() {
		return 0
	}
	car := player.CarData
	proj, ok := projectOnto(car.LinearVelocity, car.Position, state.Ball.Position)
	if !ok {
		return 0
	}
	return (proj * proj) / (arena.CarMaxSpeed * arena.CarMaxSpeed)
}
