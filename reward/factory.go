package reward

import (
	"github.com/pthm-cable/immortal/config"
)

// Component names used in breakdowns and telemetry columns.
const (
	NameVelocityPlayerToBall = "velocity_player_to_ball"
	NameVelocity             = "velocity"
	NameVelocityBallToGoal   = "velocity_ball_to_goal"
	NameKickoff              = "kickoff"
	NameAerialTouch          = "aerial_touch"
	NameWallTouch            = "wall_touch"
	NameEvent                = "event"
)

// FromConfig builds the training reward mix. Every call returns a new,
// independent component set; give each controlled agent its own.
func FromConfig(rc config.RewardsConfig) (*Combined, error) {
	aerial, err := NewAerialTouch(rc.AerialTouch.MinHeight, rc.AerialTouch.Exponent, rc.AerialTouch.CooldownTicks)
	if err != nil {
		return nil, err
	}
	wall, err := NewWallTouch(rc.WallTouch.MinHeight, rc.WallTouch.Exponent)
	if err != nil {
		return nil, err
	}
	ev := rc.Event
	event := NewEvent(EventWeights{
		Goal:        ev.Goal,
		TeamGoal:    ev.TeamGoal,
		Concede:     ev.Concede,
		Touch:       ev.Touch,
		Shot:        ev.Shot,
		Save:        ev.Save,
		Demo:        ev.Demo,
		BoostPickup: ev.BoostPickup,
	})

	return NewCombined(
		Entry{NameVelocityPlayerToBall, VelocityPlayerToBall{}, rc.VelocityPlayerToBall.Weight},
		Entry{NameVelocity, Velocity{}, rc.Velocity.Weight},
		Entry{NameVelocityBallToGoal, VelocityBallToGoal{}, rc.VelocityBallToGoal.Weight},
		Entry{NameKickoff, NewKickoff(), rc.Kickoff.Weight},
		Entry{NameAerialTouch, aerial, rc.AerialTouch.Weight},
		Entry{NameWallTouch, wall, rc.WallTouch.Weight},
		Entry{NameEvent, event, ev.Weight},
	)
}
