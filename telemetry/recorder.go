package telemetry

import (
	"github.com/pthm-cable/immortal/match"
)

// Recorder routes match results to a Collector and an OutputManager,
// flushing window stats and perf stats every stats window.
type Recorder struct {
	collector *Collector
	output    *OutputManager
	perf      *PerfCollector
	names     []string
	logStats  bool

	step     int
	episodes int
	pending  bool // recorded data not yet flushed
}

// NewRecorder creates a recorder. output and perf may be nil.
func NewRecorder(collector *Collector, output *OutputManager, perf *PerfCollector, names []string, logStats bool) *Recorder {
	return &Recorder{
		collector: collector,
		output:    output,
		perf:      perf,
		names:     append([]string(nil), names...),
		logStats:  logStats,
	}
}

// Step records one Observe result.
func (r *Recorder) Step(res match.StepResult) error {
	r.step++
	r.pending = true
	r.collector.RecordStep(res)
	if res.Done {
		if err := r.writeEpisodes(res.Episodes); err != nil {
			return err
		}
	}
	if r.collector.ShouldFlush(r.step) {
		return r.flush()
	}
	return nil
}

// Aborted records an episode closed without a terminal condition.
func (r *Recorder) Aborted(reason string, summaries []match.EpisodeSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	r.pending = true
	r.collector.RecordEpisode(reason, summaries)
	return r.writeEpisodes(summaries)
}

// Finish flushes a partially filled window.
func (r *Recorder) Finish() error {
	if !r.pending {
		return nil
	}
	return r.flush()
}

// Steps returns the number of steps recorded.
func (r *Recorder) Steps() int { return r.step }

// Episodes returns the number of episodes recorded.
func (r *Recorder) Episodes() int { return r.episodes }

func (r *Recorder) writeEpisodes(summaries []match.EpisodeSummary) error {
	r.episodes++
	return r.output.WriteEpisodes(NewEpisodeRecords(r.output.RunID(), r.names, summaries))
}

func (r *Recorder) flush() error {
	stats := r.collector.Flush(r.step)
	r.pending = false
	if r.logStats {
		stats.LogStats()
	}
	if err := r.output.WriteRewards(stats); err != nil {
		return err
	}
	if r.perf != nil {
		ps := r.perf.Stats()
		if r.logStats {
			ps.LogStats()
		}
		r.perf.NextWindow()
		if err := r.output.WritePerf(ps, r.step); err != nil {
			return err
		}
	}
	return nil
}
