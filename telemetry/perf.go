package telemetry

import (
	"log/slog"
	"time"
)

// Phase is one stage of replaying a frame.
type Phase int

const (
	PhaseReset Phase = iota
	PhaseObserve
	PhaseAct
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{"reset", "observe", "act", "telemetry"}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// phaseTotals accumulates one phase over a window.
type phaseTotals struct {
	calls int
	busy  time.Duration
	worst time.Duration
}

// perfWindow is the raw timing of a span of frames.
type perfWindow struct {
	frames int
	phases [numPhases]phaseTotals
}

func (w *perfWindow) record(p Phase, d time.Duration) {
	t := &w.phases[p]
	t.calls++
	t.busy += d
	if d > t.worst {
		t.worst = d
	}
}

// PerfCollector times the runner's phases. It keeps the current stats
// window, drained by NextWindow, and a running total for the whole replay.
// A nil collector ignores every call.
type PerfCollector struct {
	stepsPerSecond float64
	agents         int
	now            func() time.Time

	window perfWindow
	total  perfWindow
}

// NewPerfCollector creates a collector. stepsPerSecond is the game-time
// rate of recorded frames and is used for the real-time factor.
func NewPerfCollector(stepsPerSecond float64) *PerfCollector {
	return &PerfCollector{stepsPerSecond: stepsPerSecond, now: time.Now}
}

// SetAgents records how many agents each observe covers.
func (p *PerfCollector) SetAgents(n int) {
	if p != nil {
		p.agents = n
	}
}

// Begin starts timing phase p and returns the function that stops it.
func (p *PerfCollector) Begin(phase Phase) (end func()) {
	if p == nil {
		return func() {}
	}
	start := p.now()
	return func() {
		d := p.now().Sub(start)
		p.window.record(phase, d)
		p.total.record(phase, d)
	}
}

// Frame counts one replayed frame.
func (p *PerfCollector) Frame() {
	if p != nil {
		p.window.frames++
		p.total.frames++
	}
}

// Stats summarises the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p == nil {
		return PerfStats{}
	}
	return p.summarize(&p.window)
}

// Total summarises every frame since the collector was created.
func (p *PerfCollector) Total() PerfStats {
	if p == nil {
		return PerfStats{}
	}
	return p.summarize(&p.total)
}

// NextWindow starts a new stats window.
func (p *PerfCollector) NextWindow() {
	if p != nil {
		p.window = perfWindow{}
	}
}

// PhaseStats is the timing of one phase over a window.
type PhaseStats struct {
	Calls int
	Avg   time.Duration
	Max   time.Duration
	Share float64 // fraction of busy time, 0..1
}

// PerfStats is the timing of a span of frames.
type PerfStats struct {
	Frames int
	Busy   time.Duration // time spent inside timed phases
	Phases [numPhases]PhaseStats

	// ObservePerAgent is the average observe cost divided across agents.
	ObservePerAgent time.Duration
	// FramesPerSecond is wall-clock throughput.
	FramesPerSecond float64
	// RealTimeFactor is game seconds replayed per wall-clock second.
	RealTimeFactor float64
}

func (p *PerfCollector) summarize(w *perfWindow) PerfStats {
	s := PerfStats{Frames: w.frames}
	for i := range w.phases {
		s.Busy += w.phases[i].busy
	}
	for i, t := range w.phases {
		ps := PhaseStats{Calls: t.calls, Max: t.worst}
		if t.calls > 0 {
			ps.Avg = t.busy / time.Duration(t.calls)
		}
		if s.Busy > 0 {
			ps.Share = float64(t.busy) / float64(s.Busy)
		}
		s.Phases[i] = ps
	}
	if p.agents > 0 {
		s.ObservePerAgent = s.Phases[PhaseObserve].Avg / time.Duration(p.agents)
	}
	if secs := s.Busy.Seconds(); secs > 0 {
		s.FramesPerSecond = float64(w.frames) / secs
		if p.stepsPerSecond > 0 {
			s.RealTimeFactor = s.FramesPerSecond / p.stepsPerSecond
		}
	}
	return s
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("frames", s.Frames),
		slog.Int64("busy_us", s.Busy.Microseconds()),
		slog.Float64("frames_per_sec", s.FramesPerSecond),
		slog.Float64("realtime_factor", s.RealTimeFactor),
		slog.Int64("observe_per_agent_us", s.ObservePerAgent.Microseconds()),
	}
	for i, ps := range s.Phases {
		if ps.Calls == 0 {
			continue
		}
		attrs = append(attrs, slog.Group(Phase(i).String(),
			slog.Int("calls", ps.Calls),
			slog.Int64("avg_us", ps.Avg.Microseconds()),
			slog.Int64("max_us", ps.Max.Microseconds()),
		))
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the stats at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	RunID             string  `csv:"run_id"`
	WindowEnd         int     `csv:"window_end"`
	Frames            int     `csv:"frames"`
	BusyUS            int64   `csv:"busy_us"`
	FramesPerSec      float64 `csv:"frames_per_sec"`
	RealTimeFactor    float64 `csv:"realtime_factor"`
	ObservePerAgentUS int64   `csv:"observe_per_agent_us"`
	ResetAvgUS        int64   `csv:"reset_avg_us"`
	ObserveAvgUS      int64   `csv:"observe_avg_us"`
	ActAvgUS          int64   `csv:"act_avg_us"`
	TelemetryAvgUS    int64   `csv:"telemetry_avg_us"`
	ObserveShare      float64 `csv:"observe_share"`
}

// ToCSV flattens the stats into a perf.csv row.
func (s PerfStats) ToCSV(runID string, windowEnd int) PerfStatsCSV {
	return PerfStatsCSV{
		RunID:             runID,
		WindowEnd:         windowEnd,
		Frames:            s.Frames,
		BusyUS:            s.Busy.Microseconds(),
		FramesPerSec:      s.FramesPerSecond,
		RealTimeFactor:    s.RealTimeFactor,
		ObservePerAgentUS: s.ObservePerAgent.Microseconds(),
		ResetAvgUS:        s.Phases[PhaseReset].Avg.Microseconds(),
		ObserveAvgUS:      s.Phases[PhaseObserve].Avg.Microseconds(),
		ActAvgUS:          s.Phases[PhaseAct].Avg.Microseconds(),
		TelemetryAvgUS:    s.Phases[PhaseTelemetry].Avg.Microseconds(),
		ObserveShare:      s.Phases[PhaseObserve].Share,
	}
}
