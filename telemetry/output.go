package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/pthm-cable/immortal/config"
)

// Output file names inside the run directory.
const (
	EpisodesFile = "episodes.csv"
	RewardsFile  = "rewards.csv"
	PerfFile     = "perf.csv"
	ConfigFile   = "config.yaml"
)

// csvFile is an output file whose header is written with the first record.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{f: f}, nil
}

func writeRecords[T any](cf *csvFile, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if !cf.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, cf.f); err != nil {
			return err
		}
		cf.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, cf.f)
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir   string
	runID string

	episodes *csvFile
	rewards  *csvFile
	perf     *csvFile
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled); a nil manager accepts
// every write as a no-op.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, runID: uuid.NewString()}

	var err error
	if om.episodes, err = createCSV(dir, EpisodesFile); err != nil {
		return nil, err
	}
	if om.rewards, err = createCSV(dir, RewardsFile); err != nil {
		om.Close()
		return nil, err
	}
	if om.perf, err = createCSV(dir, PerfFile); err != nil {
		om.Close()
		return nil, err
	}

	return om, nil
}

// RunID identifies this run in every output row. Empty when output is
// disabled.
func (om *OutputManager) RunID() string {
	if om == nil {
		return ""
	}
	return om.runID
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteEpisodes appends episode records to episodes.csv.
func (om *OutputManager) WriteEpisodes(records []EpisodeRecord) error {
	if om == nil {
		return nil
	}
	if err := writeRecords(om.episodes, records); err != nil {
		return fmt.Errorf("writing episodes: %w", err)
	}
	return nil
}

// WriteRewards appends a window stats record to rewards.csv.
func (om *OutputManager) WriteRewards(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := writeRecords(om.rewards, []WindowStats{stats}); err != nil {
		return fmt.Errorf("writing rewards: %w", err)
	}
	return nil
}

// WritePerf appends a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}
	if err := writeRecords(om.perf, []PerfStatsCSV{stats.ToCSV(om.runID, windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files. Closing twice is a no-op.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, cf := range []*csvFile{om.episodes, om.rewards, om.perf} {
		if cf == nil {
			continue
		}
		if err := cf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	om.episodes, om.rewards, om.perf = nil, nil, nil
	return firstErr
}
