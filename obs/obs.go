// Package obs builds the policy's input vector from a game snapshot.
//
// The layout is the advanced observation used in training: ball, previous
// controls, boost pads, the observing car, then allies and opponents, each
// other car followed by its position and velocity relative to the observer.
// Orange cars see a mirrored field so every policy plays towards +Y.
package obs

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/arena"
)

// Normalisation scales.
const (
	PosStd = 2300.0
	AngStd = math.Pi
)

// Section sizes.
const (
	ballSize   = 9
	headerSize = ballSize + action.Dims + arena.BoostPadCount
	carSize    = 25
	otherSize  = carSize + 6
)

var ErrUnknownPlayer = errors.New("player not in game state")

// Size returns the observation length for a snapshot with the given number
// of players. A 1v1 snapshot gives 107.
func Size(players int) int {
	if players < 1 {
		return headerSize
	}
	return headerSize + carSize + (players-1)*otherSize
}

// Build appends one car's observation to dst and returns the extended slice.
func Build(dst []float64, player *arena.PlayerData, state *arena.GameState, previous action.Vector) []float64 {
	inverted := player.TeamNum == arena.OrangeTeam
	ball := state.Ball
	pads := state.BoostPads
	if inverted {
		ball = ball.Inverted()
		pads = state.InvertedBoostPads()
	}

	dst = appendVec(dst, ball.Position, PosStd)
	dst = appendVec(dst, ball.LinearVelocity, PosStd)
	dst = appendVec(dst, ball.AngularVelocity, AngStd)
	dst = append(dst, previous[:]...)
	for i := 0; i < arena.BoostPadCount; i++ {
		var v float64
		if i < len(pads) {
			v = pads[i]
		}
		dst = append(dst, v)
	}

	self := carData(player, inverted)
	dst = appendCar(dst, player, self, ball)

	var allies, enemies []float64
	for i := range state.Players {
		other := &state.Players[i]
		if other.CarID == player.CarID {
			continue
		}
		od := carData(other, inverted)
		section := appendCar(nil, other, od, ball)
		section = appendVec(section, r3.Sub(od.Position, self.Position), PosStd)
		section = appendVec(section, r3.Sub(od.LinearVelocity, self.LinearVelocity), PosStd)
		if other.TeamNum == player.TeamNum {
			allies = append(allies, section...)
		} else {
			enemies = append(enemies, section...)
		}
	}
	dst = append(dst, allies...)
	return append(dst, enemies...)
}

// Row returns one car's observation as a 1×Size matrix, the batch shape a
// policy evaluates.
func Row(player *arena.PlayerData, state *arena.GameState, previous action.Vector) *mat.Dense {
	v := Build(make([]float64, 0, Size(len(state.Players))), player, state, previous)
	return mat.NewDense(1, len(v), v)
}

// Batch stacks the observations of the given cars, one row per car in
// carIDs order. previous must be parallel to carIDs.
func Batch(state *arena.GameState, carIDs []int, previous []action.Vector) (*mat.Dense, error) {
	if len(previous) != len(carIDs) {
		return nil, fmt.Errorf("%d previous actions for %d cars", len(previous), len(carIDs))
	}
	if len(carIDs) == 0 {
		return nil, errors.New("no cars to observe")
	}
	size := Size(len(state.Players))
	data := make([]float64, 0, size*len(carIDs))
	for i, id := range carIDs {
		p, ok := state.Player(id)
		if !ok {
			return nil, fmt.Errorf("%w: car %d", ErrUnknownPlayer, id)
		}
		data = Build(data, p, state, previous[i])
	}
	return mat.NewDense(len(carIDs), size, data), nil
}

func carData(p *arena.PlayerData, inverted bool) arena.PhysicsObject {
	if inverted {
		return p.CarData.Inverted()
	}
	return p.CarData
}

func appendCar(dst []float64, p *arena.PlayerData, car, ball arena.PhysicsObject) []float64 {
	dst = appendVec(dst, r3.Sub(ball.Position, car.Position), PosStd)
	dst = appendVec(dst, r3.Sub(ball.LinearVelocity, car.LinearVelocity), PosStd)
	dst = appendVec(dst, car.Position, PosStd)
	dst = appendVec(dst, car.Forward, 1)
	dst = appendVec(dst, car.Up, 1)
	dst = appendVec(dst, car.LinearVelocity, PosStd)
	dst = appendVec(dst, car.AngularVelocity, AngStd)
	return append(dst, p.BoostAmount, flag(p.OnGround), flag(p.HasFlip), flag(p.IsDemoed))
}

func appendVec(dst []float64, v r3.Vec, scale float64) []float64 {
	return append(dst, v.X/scale, v.Y/scale, v.Z/scale)
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
