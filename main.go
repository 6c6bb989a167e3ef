package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/config"
	"github.com/pthm-cable/immortal/match"
	"github.com/pthm-cable/immortal/replay"
	"github.com/pthm-cable/immortal/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	inputPath := flag.String("input", "", "Recorded transitions CSV to replay")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds of game time (0 = use config)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = whole recording)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *inputPath == "" {
		slog.Error("missing -input")
		flag.Usage()
		os.Exit(2)
	}

	// Use config stats window if not overridden by CLI
	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}

	if err := run(cfg, *inputPath, *outputDir, statsWindowSec, *maxFrames, *logStats); err != nil {
		slog.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, inputPath, outputDir string, statsWindowSec float64, maxFrames int, logStats bool) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	frames, err := replay.Load(f)
	f.Close()
	if err != nil {
		return err
	}
	if maxFrames > 0 && len(frames) > maxFrames {
		frames = frames[:maxFrames]
	}

	m, err := match.New(cfg, action.NewTable())
	if err != nil {
		return err
	}

	om, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	perf := telemetry.NewPerfCollector(cfg.Derived.StepsPerSecond)
	collector := telemetry.NewCollector(om.RunID(), statsWindowSec, cfg.Derived.StepsPerSecond, m.ComponentNames())
	rec := telemetry.NewRecorder(collector, om, perf, m.ComponentNames(), logStats)

	slog.Info("starting replay",
		"input", inputPath,
		"frames", len(frames),
		"run_id", om.RunID(),
		"steps_per_second", cfg.Derived.StepsPerSecond,
		"stats_window", statsWindowSec,
	)

	runner := &replay.Runner{Match: m, Sink: rec, Perf: perf}
	if err := runner.Run(frames); err != nil {
		return err
	}
	if err := rec.Finish(); err != nil {
		return err
	}

	slog.Info("replay finished",
		"steps", rec.Steps(),
		"episodes", rec.Episodes(),
		"agents", m.NumAgents(),
		"perf", perf.Total(),
	)
	return om.Close()
}
