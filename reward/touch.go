package reward

import (
	"fmt"
	"math"

	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/arena"
)

// DefaultAerialCooldown is roughly one touch worth of policy steps. A single
// aerial contact spans several steps and must only be paid once.
const DefaultAerialCooldown = 47

// heightFraction maps ball height to [0, 1] above resting height, raised to exp.
func heightFraction(ballZ, exp float64) float64 {
	f := (ballZ - arena.BallRadius) / arena.CeilingZ
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return math.Pow(f, exp)
}

func validateTouch(minHeight, exponent float64) error {
	if math.IsNaN(minHeight) || math.IsInf(minHeight, 0) || minHeight < 0 {
		return fmt.Errorf("%w: min height %v", ErrInvalidConfig, minHeight)
	}
	if !(exponent > 0) || math.IsInf(exponent, 0) {
		return fmt.Errorf("%w: exponent %v must be positive", ErrInvalidConfig, exponent)
	}
	return nil
}

// AerialTouch rewards touching the ball while airborne, scaled by ball height.
type AerialTouch struct {
	minHeight     float64
	exponent      float64
	cooldownTicks int

	cooldown int
	fired    bool
}

// NewAerialTouch creates an aerial touch reward.
func NewAerialTouch(minHeight, exponent float64, cooldownTicks int) (*AerialTouch, error) {
	if err := validateTouch(minHeight, exponent); err != nil {
		return nil, fmt.Errorf("aerial touch: %w", err)
	}
	if cooldownTicks <= 0 {
		return nil, fmt.Errorf("aerial touch: %w: cooldown %d must be positive", ErrInvalidConfig, cooldownTicks)
	}
	return &AerialTouch{
		minHeight:     minHeight,
		exponent:      exponent,
		cooldownTicks: cooldownTicks,
	}, nil
}

// Reset clears the cooldown.
func (r *AerialTouch) Reset(*arena.GameState) {
	r.cooldown = 0
	r.fired = false
}

// Compute implements Component.
func (r *AerialTouch) Compute(player *arena.PlayerData, state *arena.GameState, _ action.Vector) float64 {
	r.fired = player.BallTouched && !player.OnGround && state.BallHeight() >= r.minHeight && r.cooldown <= 0
	if r.fired {
		r.cooldown = r.cooldownTicks
		return heightFraction(state.BallHeight(), r.exponent)
	}
	r.cooldown--
	return 0
}

// Fired reports whether the last Compute paid out, even if the payout was 0.
func (r *AerialTouch) Fired() bool {
	return r.fired
}

// Cooldown returns the remaining cooldown steps (may be negative).
func (r *AerialTouch) Cooldown() int {
	return r.cooldown
}

// WallTouch rewards touching a raised ball while on the ground (walls),
// scaled by ball height. It has no cooldown.
type WallTouch struct {
	minHeight float64
	exponent  float64

	fired bool
}

// NewWallTouch creates a wall touch reward.
func NewWallTouch(minHeight, exponent float64) (*WallTouch, error) {
	if err := validateTouch(minHeight, exponent); err != nil {
		return nil, fmt.Errorf("wall touch: %w", err)
	}
	return &WallTouch{minHeight: minHeight, exponent: exponent}, nil
}

func (r *WallTouch) Reset(*arena.GameState) {
	r.fired = false
}

// Compute implements Component.
func (r *WallTouch) Compute(player *arena.PlayerData, state *arena.GameState, _ action.Vector) float64 {
	r.fired = player.BallTouched && player.OnGround && state.BallHeight() >= r.minHeight
	if r.fired {
		return heightFraction(state.BallHeight(), r.exponent)
	}
	return 0
}

// Fired reports whether the last Compute paid out.
func (r *WallTouch) Fired() bool {
	return r.fired
}
