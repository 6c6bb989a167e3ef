// Package telemetry aggregates per-step rewards and episode returns into
// windowed statistics and writes them out as CSV.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/immortal/reward"
)

// ComponentValues holds one value per reward component, keyed by the
// component names produced by reward.FromConfig.
type ComponentValues struct {
	VelocityPlayerToBall float64 `csv:"velocity_player_to_ball"`
	Velocity             float64 `csv:"velocity"`
	VelocityBallToGoal   float64 `csv:"velocity_ball_to_goal"`
	Kickoff              float64 `csv:"kickoff"`
	AerialTouch          float64 `csv:"aerial_touch"`
	WallTouch            float64 `csv:"wall_touch"`
	Event                float64 `csv:"event"`
}

// field returns the slot for a component name, or nil if the name is not
// one of the standard components.
func (c *ComponentValues) field(name string) *float64 {
	switch name {
	case reward.NameVelocityPlayerToBall:
		return &c.VelocityPlayerToBall
	case reward.NameVelocity:
		return &c.Velocity
	case reward.NameVelocityBallToGoal:
		return &c.VelocityBallToGoal
	case reward.NameKickoff:
		return &c.Kickoff
	case reward.NameAerialTouch:
		return &c.AerialTouch
	case reward.NameWallTouch:
		return &c.WallTouch
	case reward.NameEvent:
		return &c.Event
	}
	return nil
}

// Set stores values by name. Names outside the standard set are ignored.
func (c *ComponentValues) Set(names []string, values []float64) {
	for i, name := range names {
		if i >= len(values) {
			return
		}
		if f := c.field(name); f != nil {
			*f = values[i]
		}
	}
}

// WindowStats holds aggregated statistics for a stats window.
type WindowStats struct {
	RunID           string  `csv:"run_id"`
	WindowStartStep int     `csv:"-"`
	WindowEndStep   int     `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Steps           int `csv:"steps"`
	Episodes        int `csv:"episodes"`
	Goals           int `csv:"goals"`
	Timeouts        int `csv:"timeouts"`
	NoTouchTimeouts int `csv:"no_touch_timeouts"`

	// Per-agent step reward distribution
	RewardMean float64 `csv:"reward_mean"`
	RewardStd  float64 `csv:"reward_std"`
	RewardMin  float64 `csv:"reward_min"`
	RewardP10  float64 `csv:"reward_p10"`
	RewardP50  float64 `csv:"reward_p50"`
	RewardP90  float64 `csv:"reward_p90"`
	RewardMax  float64 `csv:"reward_max"`

	// Episode returns closed in this window
	ReturnMean float64 `csv:"return_mean"`

	AerialTouches int `csv:"aerial_touches"`
	WallTouches   int `csv:"wall_touches"`

	// Mean weighted contribution per agent step
	ComponentValues
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summary is the distribution of a sample.
type Summary struct {
	Mean, Std     float64
	Min, Max      float64
	P10, P50, P90 float64
}

// Summarize computes mean, sample standard deviation, extremes and
// percentiles. A single value has zero spread.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var s Summary
	if n == 1 {
		s.Mean = sorted[0]
	} else {
		s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	}
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.P10 = Percentile(sorted, 0.10)
	s.P50 = Percentile(sorted, 0.50)
	s.P90 = Percentile(sorted, 0.90)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartStep),
		slog.Int("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("steps", s.Steps),
		slog.Int("episodes", s.Episodes),
		slog.Int("goals", s.Goals),
		slog.Int("timeouts", s.Timeouts),
		slog.Int("no_touch_timeouts", s.NoTouchTimeouts),
		slog.Float64("reward_mean", s.RewardMean),
		slog.Float64("reward_std", s.RewardStd),
		slog.Float64("reward_p50", s.RewardP50),
		slog.Float64("return_mean", s.ReturnMean),
		slog.Int("aerial_touches", s.AerialTouches),
		slog.Int("wall_touches", s.WallTouches),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndStep,
		"sim_time", s.SimTimeSec,
		"steps", s.Steps,
		"episodes", s.Episodes,
		"goals", s.Goals,
		"timeouts", s.Timeouts,
		"no_touch_timeouts", s.NoTouchTimeouts,
		"reward_mean", s.RewardMean,
		"reward_std", s.RewardStd,
		"reward_min", s.RewardMin,
		"reward_max", s.RewardMax,
		"return_mean", s.ReturnMean,
		"aerial_touches", s.AerialTouches,
		"wall_touches", s.WallTouches,
		"aerial_touch", s.AerialTouch,
		"event", s.Event,
	)
}
