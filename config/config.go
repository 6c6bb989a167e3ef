// Package config provides configuration loading and access for the agent core.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/immortal/arena"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all configuration parameters.
type Config struct {
	Match     MatchConfig     `yaml:"match"`
	Rewards   RewardsConfig   `yaml:"rewards"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// MatchConfig holds episode timing parameters.
type MatchConfig struct {
	TickSkip              int     `yaml:"tick_skip"`
	TeamSize              int     `yaml:"team_size"`
	TimeoutSeconds        float64 `yaml:"timeout_seconds"`
	NoTouchTimeoutSeconds float64 `yaml:"no_touch_timeout_seconds"`
	HalfLifeSeconds       float64 `yaml:"half_life_seconds"`
}

// RewardsConfig holds the weight and parameters of every reward component.
type RewardsConfig struct {
	VelocityPlayerToBall WeightConfig      `yaml:"velocity_player_to_ball"`
	Velocity             WeightConfig      `yaml:"velocity"`
	VelocityBallToGoal   WeightConfig      `yaml:"velocity_ball_to_goal"`
	Kickoff              WeightConfig      `yaml:"kickoff"`
	AerialTouch          AerialTouchConfig `yaml:"aerial_touch"`
	WallTouch            TouchConfig       `yaml:"wall_touch"`
	Event                EventConfig       `yaml:"event"`
}

// WeightConfig is a component with no parameters beyond its weight.
type WeightConfig struct {
	Weight float64 `yaml:"weight"`
}

// TouchConfig holds height-scaled touch reward parameters.
type TouchConfig struct {
	Weight    float64 `yaml:"weight"`
	MinHeight float64 `yaml:"min_height"` // 0 = ball radius
	Exponent  float64 `yaml:"exponent"`   // 0 = 1
}

// AerialTouchConfig adds the re-fire cooldown to TouchConfig.
type AerialTouchConfig struct {
	TouchConfig   `yaml:",inline"`
	CooldownTicks int `yaml:"cooldown_ticks"`
}

// EventConfig holds the per-event rewards of the event component.
type EventConfig struct {
	Weight      float64 `yaml:"weight"`
	Goal        float64 `yaml:"goal"`
	TeamGoal    float64 `yaml:"team_goal"`
	Concede     float64 `yaml:"concede"`
	Touch       float64 `yaml:"touch"`
	Shot        float64 `yaml:"shot"`
	Save        float64 `yaml:"save"`
	Demo        float64 `yaml:"demo"`
	BoostPickup float64 `yaml:"boost_pickup"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	StepsPerSecond      float64 // arena.TickRate / TickSkip
	TimeoutSteps        int
	NoTouchTimeoutSteps int
	Gamma               float64 // per-step discount from HalfLifeSeconds
	StatsWindowSteps    int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults. Panics if they fail to load, which
// only happens if defaults.yaml itself is broken.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// applyDefaults fills parameters left at zero.
func (c *Config) applyDefaults() {
	for _, t := range []*TouchConfig{&c.Rewards.AerialTouch.TouchConfig, &c.Rewards.WallTouch} {
		if t.MinHeight == 0 {
			t.MinHeight = arena.BallRadius
		}
		if t.Exponent == 0 {
			t.Exponent = 1
		}
	}
}

// Validate rejects configurations that would produce an inconsistent
// reward set or episode schedule.
func (c *Config) Validate() error {
	m := c.Match
	if m.TickSkip <= 0 {
		return fmt.Errorf("%w: match.tick_skip must be positive, got %d", ErrInvalid, m.TickSkip)
	}
	if m.TeamSize <= 0 {
		return fmt.Errorf("%w: match.team_size must be positive, got %d", ErrInvalid, m.TeamSize)
	}
	if m.TimeoutSeconds <= 0 || m.NoTouchTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: match timeouts must be positive", ErrInvalid)
	}
	if m.HalfLifeSeconds <= 0 {
		return fmt.Errorf("%w: match.half_life_seconds must be positive", ErrInvalid)
	}

	r := c.Rewards
	weights := []struct {
		name   string
		weight float64
	}{
		{"velocity_player_to_ball", r.VelocityPlayerToBall.Weight},
		{"velocity", r.Velocity.Weight},
		{"velocity_ball_to_goal", r.VelocityBallToGoal.Weight},
		{"kickoff", r.Kickoff.Weight},
		{"aerial_touch", r.AerialTouch.Weight},
		{"wall_touch", r.WallTouch.Weight},
		{"event", r.Event.Weight},
	}
	for _, w := range weights {
		if math.IsNaN(w.weight) || math.IsInf(w.weight, 0) {
			return fmt.Errorf("%w: rewards.%s.weight is not finite", ErrInvalid, w.name)
		}
	}
	if r.AerialTouch.CooldownTicks <= 0 {
		return fmt.Errorf("%w: rewards.aerial_touch.cooldown_ticks must be positive, got %d",
			ErrInvalid, r.AerialTouch.CooldownTicks)
	}
	touches := []struct {
		name string
		cfg  TouchConfig
	}{
		{"aerial_touch", r.AerialTouch.TouchConfig},
		{"wall_touch", r.WallTouch},
	}
	for _, t := range touches {
		if t.cfg.Exponent <= 0 {
			return fmt.Errorf("%w: rewards.%s.exponent must be positive", ErrInvalid, t.name)
		}
		if t.cfg.MinHeight < 0 {
			return fmt.Errorf("%w: rewards.%s.min_height must not be negative", ErrInvalid, t.name)
		}
	}

	if c.Telemetry.StatsWindow <= 0 {
		return fmt.Errorf("%w: telemetry.stats_window must be positive", ErrInvalid)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	sps := float64(arena.TickRate) / float64(c.Match.TickSkip)
	c.Derived.StepsPerSecond = sps
	c.Derived.TimeoutSteps = int(math.Round(sps * c.Match.TimeoutSeconds))
	c.Derived.NoTouchTimeoutSteps = int(math.Round(sps * c.Match.NoTouchTimeoutSeconds))
	c.Derived.Gamma = math.Exp(math.Log(0.5) / (sps * c.Match.HalfLifeSeconds))

	window := int(c.Telemetry.StatsWindow * sps)
	if window < 1 {
		window = 1
	}
	c.Derived.StatsWindowSteps = window
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
