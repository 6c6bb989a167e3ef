// Package arena defines the game-state snapshot consumed by the reward and
// terminal layers, plus the fixed field dimensions of the standard arena.
package arena

import "gonum.org/v1/gonum/spatial/r3"

// Team identifiers as reported by the simulator.
const (
	BlueTeam   = 0
	OrangeTeam = 1
)

// Field dimensions in unreal units.
const (
	BackWallY  = 5120.0
	CeilingZ   = 2044.0
	BackNetY   = 6000.0 // back of the net, not the goal line
	GoalHeight = 642.775
	BallRadius = 92.75
)

// Speed limits in unreal units per second.
const (
	CarMaxSpeed  = 2300.0
	BallMaxSpeed = 6000.0
)

// Simulator timing.
const (
	TickRate = 120 // physics ticks per second
)

// BoostPadCount is the number of boost pads on the standard arena.
const BoostPadCount = 34

// Goal targets used by the ball-to-goal rewards.
var (
	OrangeGoalBack = r3.Vec{X: 0, Y: BackNetY, Z: GoalHeight / 2}
	BlueGoalBack   = r3.Vec{X: 0, Y: -BackNetY, Z: GoalHeight / 2}
)

// OpponentGoalBack returns the back of the goal the given team attacks.
func OpponentGoalBack(team int) r3.Vec {
	if team == BlueTeam {
		return OrangeGoalBack
	}
	return BlueGoalBack
}

// OwnGoalBack returns the back of the goal the given team defends.
func OwnGoalBack(team int) r3.Vec {
	if team == BlueTeam {
		return BlueGoalBack
	}
	return OrangeGoalBack
}
