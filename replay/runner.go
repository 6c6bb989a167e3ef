package replay

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/immortal/match"
	"github.com/pthm-cable/immortal/telemetry"
)

// Reasons for episodes closed by the runner rather than a terminal condition.
const (
	ReasonEpisodeChange  = "episode_change"
	ReasonEndOfRecording = "end_of_recording"
)

var ErrMissingAction = errors.New("no recorded action for agent")

// Sink receives everything the runner produces.
type Sink interface {
	Step(res match.StepResult) error
	Aborted(reason string, summaries []match.EpisodeSummary) error
}

// Runner replays frames through a match. Perf is optional.
type Runner struct {
	Match *match.Match
	Sink  Sink
	Perf  *telemetry.PerfCollector
}

// Run replays frames through m with default options.
func Run(m *match.Match, frames []Frame, sink Sink) error {
	r := &Runner{Match: m, Sink: sink}
	return r.Run(frames)
}

// Run registers agents from the first frame if none are registered, then
// for each frame: resets on an episode boundary or after a terminal step,
// otherwise observes the frame, and finally acts with the frame's recorded
// actions.
func (r *Runner) Run(frames []Frame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	m := r.Match
	if m.NumAgents() == 0 {
		for _, p := range frames[0].State.Players {
			if err := m.AddAgent(p.CarID, p.TeamNum); err != nil {
				return err
			}
		}
	}
	r.Perf.SetAgents(m.NumAgents())

	active := false
	episode := frames[0].Episode
	for i := range frames {
		f := &frames[i]
		where := func(err error) error {
			return fmt.Errorf("frame %d (episode %d tick %d): %w", i, f.Episode, f.State.Tick, err)
		}

		if active && f.Episode != episode {
			if err := r.timed(telemetry.PhaseTelemetry, func() error {
				return r.Sink.Aborted(ReasonEpisodeChange, m.Abort(ReasonEpisodeChange))
			}); err != nil {
				return err
			}
			active = false
		}
		episode = f.Episode

		if !active {
			if err := r.timed(telemetry.PhaseReset, func() error { return m.Reset(f.State) }); err != nil {
				return where(err)
			}
			active = true
		} else {
			var res match.StepResult
			if err := r.timed(telemetry.PhaseObserve, func() error {
				var err error
				res, err = m.Observe(f.State)
				return err
			}); err != nil {
				return where(err)
			}
			if err := r.timed(telemetry.PhaseTelemetry, func() error { return r.Sink.Step(res) }); err != nil {
				return err
			}
			if res.Done {
				slog.Debug("terminal step", "episode", f.Episode, "tick", f.State.Tick, "reason", res.Reason)
				active = false
				r.Perf.Frame()
				continue
			}
		}

		indices, err := r.actions(f)
		if err != nil {
			return err
		}
		if err := r.timed(telemetry.PhaseAct, func() error {
			_, err := m.Act(indices)
			return err
		}); err != nil {
			return where(err)
		}
		r.Perf.Frame()
	}

	if active {
		return r.Sink.Aborted(ReasonEndOfRecording, m.Abort(ReasonEndOfRecording))
	}
	return nil
}

// actions orders the frame's recorded actions by agent registration.
func (r *Runner) actions(f *Frame) ([]int, error) {
	ids := r.Match.CarIDs()
	out := make([]int, len(ids))
	for i, id := range ids {
		a, ok := f.Actions[id]
		if !ok {
			return nil, fmt.Errorf("%w: car %d at episode %d tick %d", ErrMissingAction, id, f.Episode, f.State.Tick)
		}
		out[i] = a
	}
	return out, nil
}

// timed runs fn inside phase p of the perf collector.
func (r *Runner) timed(p telemetry.Phase, fn func() error) error {
	defer r.Perf.Begin(p)()
	return fn()
}
