package telemetry

import (
	"github.com/pthm-cable/immortal/match"
	"github.com/pthm-cable/immortal/reward"
)

// Collector accumulates step results within a window of policy steps and
// produces WindowStats.
type Collector struct {
	runID       string
	names       []string
	windowSteps int
	stepSec     float64

	aerialIdx int
	wallIdx   int

	// Current window tracking
	windowStartStep int
	steps           int
	rewards         []float64
	componentSums   []float64
	returns         []float64

	episodes        int
	goals           int
	timeouts        int
	noTouchTimeouts int
	aerialTouches   int
	wallTouches     int
}

// NewCollector creates a stats collector.
// windowDurationSec: game time per window; stepsPerSecond: policy step rate;
// names: reward component names in breakdown order.
func NewCollector(runID string, windowDurationSec, stepsPerSecond float64, names []string) *Collector {
	windowSteps := int(windowDurationSec * stepsPerSecond)
	if windowSteps < 1 {
		windowSteps = 1
	}
	var stepSec float64
	if stepsPerSecond > 0 {
		stepSec = 1 / stepsPerSecond
	}

	c := &Collector{
		runID:         runID,
		names:         append([]string(nil), names...),
		windowSteps:   windowSteps,
		stepSec:       stepSec,
		aerialIdx:     -1,
		wallIdx:       -1,
		componentSums: make([]float64, len(names)),
	}
	for i, n := range names {
		switch n {
		case reward.NameAerialTouch:
			c.aerialIdx = i
		case reward.NameWallTouch:
			c.wallIdx = i
		}
	}
	return c
}

// RecordStep adds one Observe result to the current window.
func (c *Collector) RecordStep(res match.StepResult) {
	c.steps++
	c.rewards = append(c.rewards, res.Rewards...)
	for _, row := range res.Breakdown {
		for i, v := range row {
			if i < len(c.componentSums) {
				c.componentSums[i] += v
			}
		}
	}
	// Touches are counted from trigger flags; a touch may pay nothing.
	for _, fired := range res.Fired {
		if c.aerialIdx >= 0 && c.aerialIdx < len(fired) && fired[c.aerialIdx] {
			c.aerialTouches++
		}
		if c.wallIdx >= 0 && c.wallIdx < len(fired) && fired[c.wallIdx] {
			c.wallTouches++
		}
	}
	if res.Done {
		c.RecordEpisode(res.Reason, res.Episodes)
	}
}

// RecordEpisode records a finished episode. RecordStep calls it for
// terminal steps; callers use it directly for aborted episodes.
func (c *Collector) RecordEpisode(reason string, summaries []match.EpisodeSummary) {
	c.episodes++
	switch reason {
	case match.ReasonGoalScored:
		c.goals++
	case match.ReasonTimeout:
		c.timeouts++
	case match.ReasonNoTouchTimeout:
		c.noTouchTimeouts++
	}
	for _, s := range summaries {
		c.returns = append(c.returns, s.Return)
	}
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(currentStep int) bool {
	return currentStep-c.windowStartStep >= c.windowSteps
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentStep int) WindowStats {
	rs := Summarize(c.rewards)
	ret := Summarize(c.returns)

	stats := WindowStats{
		RunID:           c.runID,
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   currentStep,
		SimTimeSec:      float64(currentStep) * c.stepSec,

		Steps:           c.steps,
		Episodes:        c.episodes,
		Goals:           c.goals,
		Timeouts:        c.timeouts,
		NoTouchTimeouts: c.noTouchTimeouts,

		RewardMean: rs.Mean,
		RewardStd:  rs.Std,
		RewardMin:  rs.Min,
		RewardP10:  rs.P10,
		RewardP50:  rs.P50,
		RewardP90:  rs.P90,
		RewardMax:  rs.Max,
		ReturnMean: ret.Mean,

		AerialTouches: c.aerialTouches,
		WallTouches:   c.wallTouches,
	}
	if n := len(c.rewards); n > 0 {
		means := make([]float64, len(c.componentSums))
		for i, sum := range c.componentSums {
			means[i] = sum / float64(n)
		}
		stats.ComponentValues.Set(c.names, means)
	}

	// Reset for next window
	c.windowStartStep = currentStep
	c.steps = 0
	c.rewards = c.rewards[:0]
	c.returns = c.returns[:0]
	clear(c.componentSums)
	c.episodes = 0
	c.goals = 0
	c.timeouts = 0
	c.noTouchTimeouts = 0
	c.aerialTouches = 0
	c.wallTouches = 0

	return stats
}

// WindowDurationSteps returns the number of policy steps per window.
func (c *Collector) WindowDurationSteps() int {
	return c.windowSteps
}

// EpisodeRecord is one row of episodes.csv.
type EpisodeRecord struct {
	RunID      string  `csv:"run_id"`
	Episode    int     `csv:"episode"`
	CarID      int     `csv:"car_id"`
	Team       int     `csv:"team"`
	Steps      int     `csv:"steps"`
	Return     float64 `csv:"return"`
	Discounted float64 `csv:"discounted_return"`
	Reason     string  `csv:"reason"`

	// Summed weighted contribution per component
	ComponentValues
}

// NewEpisodeRecords converts match summaries into CSV rows.
func NewEpisodeRecords(runID string, names []string, summaries []match.EpisodeSummary) []EpisodeRecord {
	out := make([]EpisodeRecord, len(summaries))
	for i, s := range summaries {
		out[i] = EpisodeRecord{
			RunID:      runID,
			Episode:    s.Episode,
			CarID:      s.CarID,
			Team:       s.Team,
			Steps:      s.Steps,
			Return:     s.Return,
			Discounted: s.Discounted,
			Reason:     s.Reason,
		}
		out[i].ComponentValues.Set(names, s.Components)
	}
	return out
}
