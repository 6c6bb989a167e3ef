package arena

import "gonum.org/v1/gonum/spatial/r3"

// PhysicsObject is the kinematic state of the ball or a car.
// Forward and Up are unit orientation axes; they are zero for the ball.
type PhysicsObject struct {
	Position        r3.Vec
	LinearVelocity  r3.Vec
	AngularVelocity r3.Vec
	Forward         r3.Vec
	Up              r3.Vec
}

// Inverted returns the object as seen from the orange side: the field is
// rotated half a turn about the Z axis.
func (o PhysicsObject) Inverted() PhysicsObject {
	return PhysicsObject{
		Position:        flipXY(o.Position),
		LinearVelocity:  flipXY(o.LinearVelocity),
		AngularVelocity: flipXY(o.AngularVelocity),
		Forward:         flipXY(o.Forward),
		Up:              flipXY(o.Up),
	}
}

func flipXY(v r3.Vec) r3.Vec {
	return r3.Vec{X: -v.X, Y: -v.Y, Z: v.Z}
}

// PlayerData is one car's state plus its running match statistics.
// Match counters are cumulative for the match, not per tick.
type PlayerData struct {
	CarID   int
	TeamNum int

	MatchGoals      int
	MatchSaves      int
	MatchShots      int
	MatchDemolishes int

	IsDemoed    bool
	OnGround    bool
	BallTouched bool // touched the ball since the previous step
	HasFlip     bool
	BoostAmount float64 // 0..1

	CarData PhysicsObject
}

// GameState is a full snapshot for one step.
type GameState struct {
	Tick        int
	BlueScore   int
	OrangeScore int
	LastTouch   int // car id of the last player to touch the ball, -1 if none

	Ball      PhysicsObject
	Players   []PlayerData
	BoostPads []float64 // 1 = available, in arena pad order; nil when unknown
}

// Player returns the player with the given car id.
func (s *GameState) Player(carID int) (*PlayerData, bool) {
	for i := range s.Players {
		if s.Players[i].CarID == carID {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// InvertedBoostPads returns the pad states in orange-side order. Pads are
// laid out symmetrically, so mirroring the field reverses the list.
func (s *GameState) InvertedBoostPads() []float64 {
	out := make([]float64, len(s.BoostPads))
	for i, v := range s.BoostPads {
		out[len(out)-1-i] = v
	}
	return out
}

// TeamScores returns (own, opponent) goals from the given team's perspective.
func (s *GameState) TeamScores(team int) (own, opponent int) {
	if team == BlueTeam {
		return s.BlueScore, s.OrangeScore
	}
	return s.OrangeScore, s.BlueScore
}

// BallHeight returns the ball's Z coordinate.
func (s *GameState) BallHeight() float64 {
	return s.Ball.Position.Z
}

// IsKickoff reports whether the ball sits exactly on the centre spot.
// The comparison is exact: the simulator places the ball at (0, 0) for
// kickoffs and any drift means play has started.
func (s *GameState) IsKickoff() bool {
	return s.Ball.Position.X == 0 && s.Ball.Position.Y == 0
}

// AnyTouched reports whether any player touched the ball this step.
func (s *GameState) AnyTouched() bool {
	for i := range s.Players {
		if s.Players[i].BallTouched {
			return true
		}
	}
	return false
}
