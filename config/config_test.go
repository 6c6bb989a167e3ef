package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/immortal/arena"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	r := cfg.Rewards
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"velocity_player_to_ball", r.VelocityPlayerToBall.Weight, 0.004},
		{"velocity", r.Velocity.Weight, 0.024},
		{"velocity_ball_to_goal", r.VelocityBallToGoal.Weight, 0.02},
		{"kickoff", r.Kickoff.Weight, 0.2},
		{"aerial_touch", r.AerialTouch.Weight, 6.0},
		{"wall_touch", r.WallTouch.Weight, 6.0},
		{"wall_touch min height", r.WallTouch.MinHeight, 250},
		{"aerial min height defaults to ball radius", r.AerialTouch.MinHeight, arena.BallRadius},
		{"aerial exponent", r.AerialTouch.Exponent, 1},
		{"event", r.Event.Weight, 0.01},
		{"team goal", r.Event.TeamGoal, 1200},
		{"concede", r.Event.Concede, -1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if r.AerialTouch.CooldownTicks != 47 {
		t.Errorf("cooldown = %d, want 47", r.AerialTouch.CooldownTicks)
	}
}

func TestDerived(t *testing.T) {
	cfg := Default()
	d := cfg.Derived

	if d.StepsPerSecond != 20 {
		t.Errorf("StepsPerSecond = %v, want 20", d.StepsPerSecond)
	}
	if d.TimeoutSteps != 600 {
		t.Errorf("TimeoutSteps = %d, want 600", d.TimeoutSteps)
	}
	if d.NoTouchTimeoutSteps != 400 {
		t.Errorf("NoTouchTimeoutSteps = %d, want 400", d.NoTouchTimeoutSteps)
	}
	if d.StatsWindowSteps != 200 {
		t.Errorf("StatsWindowSteps = %d, want 200", d.StatsWindowSteps)
	}

	// gamma^(steps in one half-life) == 0.5
	halfLifeSteps := d.StepsPerSecond * cfg.Match.HalfLifeSeconds
	if got := math.Pow(d.Gamma, halfLifeSteps); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("gamma^%v = %v, want 0.5", halfLifeSteps, got)
	}
}

func TestLoadOverride(t *testing.T) {
	path := writeConfig(t, `
rewards:
  aerial_touch:
    weight: 3.5
    exponent: 2
match:
  tick_skip: 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Rewards.AerialTouch.Weight != 3.5 {
		t.Errorf("weight = %v, want 3.5", cfg.Rewards.AerialTouch.Weight)
	}
	if cfg.Rewards.AerialTouch.Exponent != 2 {
		t.Errorf("exponent = %v, want 2", cfg.Rewards.AerialTouch.Exponent)
	}
	// Untouched fields keep their defaults
	if cfg.Rewards.AerialTouch.CooldownTicks != 47 {
		t.Errorf("cooldown = %d, want 47", cfg.Rewards.AerialTouch.CooldownTicks)
	}
	if cfg.Rewards.Kickoff.Weight != 0.2 {
		t.Errorf("kickoff weight = %v, want 0.2", cfg.Rewards.Kickoff.Weight)
	}
	if cfg.Derived.StepsPerSecond != 15 {
		t.Errorf("StepsPerSecond = %v, want 15", cfg.Derived.StepsPerSecond)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero cooldown", "rewards:\n  aerial_touch:\n    cooldown_ticks: 0\n"},
		{"negative cooldown", "rewards:\n  aerial_touch:\n    cooldown_ticks: -5\n"},
		{"negative exponent", "rewards:\n  wall_touch:\n    exponent: -1\n"},
		{"negative min height", "rewards:\n  wall_touch:\n    min_height: -10\n"},
		{"infinite weight", "rewards:\n  kickoff:\n    weight: .inf\n"},
		{"zero tick skip", "match:\n  tick_skip: 0\n"},
		{"zero half life", "match:\n  half_life_seconds: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Rewards.WallTouch.Weight = 4.25

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Rewards.WallTouch.Weight != 4.25 {
		t.Errorf("weight = %v, want 4.25", loaded.Rewards.WallTouch.Weight)
	}
}

func TestValidateReportsFirstFieldInOrder(t *testing.T) {
	cfg := Default()
	cfg.Rewards.Velocity.Weight = math.NaN()
	cfg.Rewards.Event.Weight = math.Inf(1)
	cfg.Rewards.AerialTouch.Exponent = -1
	cfg.Rewards.WallTouch.Exponent = -1

	want := "invalid config: rewards.velocity.weight is not finite"
	for i := 0; i < 20; i++ {
		if err := cfg.Validate(); err == nil || err.Error() != want {
			t.Fatalf("run %d: Validate() = %v, want %q", i, err, want)
		}
	}

	cfg.Rewards.Velocity.Weight = 1
	cfg.Rewards.Event.Weight = 1
	want = "invalid config: rewards.aerial_touch.exponent must be positive"
	for i := 0; i < 20; i++ {
		if err := cfg.Validate(); err == nil || err.Error() != want {
			t.Fatalf("run %d: Validate() = %v, want %q", i, err, want)
		}
	}
}
