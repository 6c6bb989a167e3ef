package match

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/arena"
	"github.com/pthm-cable/immortal/config"
	"github.com/pthm-cable/immortal/reward"
)

// snapshot builds a two-car state with the ball in the air. touched lists the
// car ids that touched the ball this step.
func snapshot(blue, orange int, touched ...int) *arena.GameState {
	s := &arena.GameState{
		BlueScore:   blue,
		OrangeScore: orange,
		LastTouch:   -1,
		Ball:        arena.PhysicsObject{Position: r3.Vec{X: 100, Y: 200, Z: 1500}},
		Players: []arena.PlayerData{
			{CarID: 0, TeamNum: arena.BlueTeam, CarData: arena.PhysicsObject{Position: r3.Vec{Y: -2000, Z: 17}}},
			{CarID: 1, TeamNum: arena.OrangeTeam, CarData: arena.PhysicsObject{Position: r3.Vec{Y: 2000, Z: 17}}},
		},
	}
	for _, id := range touched {
		p, _ := s.Player(id)
		p.BallTouched = true
		s.LastTouch = id
	}
	return s
}

func newMatch(t *testing.T, cfg *config.Config) *Match {
	t.Helper()
	m, err := New(cfg, action.NewTable())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.AddAgent(0, arena.BlueTeam); err != nil {
		t.Fatalf("AddAgent(0): %v", err)
	}
	if err := m.AddAgent(1, arena.OrangeTeam); err != nil {
		t.Fatalf("AddAgent(1): %v", err)
	}
	return m
}

func componentIndex(t *testing.T, m *Match, name string) int {
	t.Helper()
	for i, n := range m.ComponentNames() {
		if n == name {
			return i
		}
	}
	t.Fatalf("component %q not found in %v", name, m.ComponentNames())
	return -1
}

func TestAddAgentRejectsDuplicate(t *testing.T) {
	m := newMatch(t, config.Default())
	if err := m.AddAgent(0, arena.OrangeTeam); !errors.Is(err, ErrDuplicateAgent) {
		t.Errorf("err = %v, want ErrDuplicateAgent", err)
	}
	if got := m.CarIDs(); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("CarIDs() = %v, want [0 1]", got)
	}
}

func TestNewRejectsBadRewards(t *testing.T) {
	cfg := config.Default()
	cfg.Rewards.AerialTouch.CooldownTicks = 0
	if _, err := New(cfg, action.NewTable()); !errors.Is(err, reward.ErrInvalidConfig) {
		t.Errorf("err = %v, want reward.ErrInvalidConfig", err)
	}
}

func TestLifecycleErrors(t *testing.T) {
	empty, err := New(config.Default(), action.NewTable())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := empty.Reset(snapshot(0, 0)); !errors.Is(err, ErrNoAgents) {
		t.Errorf("Reset with no agents err = %v", err)
	}

	m := newMatch(t, config.Default())
	if _, err := m.Act([]int{0, 0}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Act before Reset err = %v", err)
	}
	if _, err := m.Observe(snapshot(0, 0)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Observe before Reset err = %v", err)
	}

	if err := m.Reset(snapshot(0, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := m.AddAgent(7, arena.BlueTeam); !errors.Is(err, ErrEpisodeActive) {
		t.Errorf("AddAgent mid-episode err = %v", err)
	}
	if _, err := m.Act([]int{0}); !errors.Is(err, ErrAgentCount) {
		t.Errorf("Act with one index err = %v", err)
	}
	if _, err := m.Act([]int{0, 126}); !errors.Is(err, action.ErrIndexOutOfRange) {
		t.Errorf("Act out of range err = %v", err)
	}

	missing := snapshot(0, 0)
	missing.Players = missing.Players[:1]
	if _, err := m.Observe(missing); !errors.Is(err, ErrMissingPlayer) {
		t.Errorf("Observe missing car err = %v", err)
	}
}

func TestActDecodesInRegistrationOrder(t *testing.T) {
	m := newMatch(t, config.Default())
	if err := m.Reset(snapshot(0, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	table := action.NewTable()
	got, err := m.Act([]int{5, 100})
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	want5, _ := table.Decode(5)
	want100, _ := table.Decode(100)
	if len(got) != 2 || got[0] != want5 || got[1] != want100 {
		t.Errorf("Act = %v, want [%v %v]", got, want5, want100)
	}
}

func TestAerialCooldownIsPerAgent(t *testing.T) {
	m := newMatch(t, config.Default())
	aerial := componentIndex(t, m, reward.NameAerialTouch)

	if err := m.Reset(snapshot(0, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	steps := []struct {
		touched    []int
		wantFire   [2]bool
		descriptor string
	}{
		{[]int{0}, [2]bool{true, false}, "car 0 touches"},
		{[]int{0, 1}, [2]bool{false, true}, "car 0 cooling, car 1 fresh"},
		{[]int{0, 1}, [2]bool{false, false}, "both cooling"},
	}
	for i, s := range steps {
		if _, err := m.Act([]int{0, 0}); err != nil {
			t.Fatalf("step %d Act: %v", i, err)
		}
		res, err := m.Observe(snapshot(0, 0, s.touched...))
		if err != nil {
			t.Fatalf("step %d Observe: %v", i, err)
		}
		for agent := 0; agent < 2; agent++ {
			fired := res.Breakdown[agent][aerial] > 0
			if fired != s.wantFire[agent] {
				t.Errorf("%s: agent %d fired = %v, want %v", s.descriptor, agent, fired, s.wantFire[agent])
			}
		}
	}
}

func TestResetClearsCooldown(t *testing.T) {
	m := newMatch(t, config.Default())
	aerial := componentIndex(t, m, reward.NameAerialTouch)

	for episode := 0; episode < 2; episode++ {
		if err := m.Reset(snapshot(0, 0)); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		if _, err := m.Act([]int{0, 0}); err != nil {
			t.Fatalf("Act: %v", err)
		}
		res, err := m.Observe(snapshot(0, 0, 0))
		if err != nil {
			t.Fatalf("Observe: %v", err)
		}
		if res.Breakdown[0][aerial] <= 0 {
			t.Errorf("episode %d: aerial = %v, want > 0", episode+1, res.Breakdown[0][aerial])
		}
	}
	if m.Episode() != 2 {
		t.Errorf("Episode() = %d, want 2", m.Episode())
	}
}

func TestTimeoutEndsEpisode(t *testing.T) {
	cfg := config.Default()
	cfg.Derived.TimeoutSteps = 3
	m := newMatch(t, cfg)
	if err := m.Reset(snapshot(0, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	var sums [2]float64
	var res StepResult
	for step := 1; step <= 3; step++ {
		if _, err := m.Act([]int{0, 0}); err != nil {
			t.Fatalf("Act: %v", err)
		}
		var err error
		res, err = m.Observe(snapshot(0, 0, 0, 1))
		if err != nil {
			t.Fatalf("Observe: %v", err)
		}
		sums[0] += res.Rewards[0]
		sums[1] += res.Rewards[1]
		if step < 3 && res.Done {
			t.Fatalf("done early at step %d (%s)", step, res.Reason)
		}
	}

	if !res.Done || res.Reason != ReasonTimeout {
		t.Fatalf("final step = (%v, %q), want (true, %q)", res.Done, res.Reason, ReasonTimeout)
	}
	if len(res.Episodes) != 2 {
		t.Fatalf("episodes = %d, want 2", len(res.Episodes))
	}
	for i, ep := range res.Episodes {
		if ep.Steps != 3 || ep.Episode != 1 || ep.Reason != ReasonTimeout {
			t.Errorf("summary %d = %+v", i, ep)
		}
		if math.Abs(ep.Return-sums[i]) > 1e-9 {
			t.Errorf("summary %d return = %v, want %v", i, ep.Return, sums[i])
		}
		var comp float64
		for _, v := range ep.Components {
			comp += v
		}
		if math.Abs(comp-ep.Return) > 1e-9 {
			t.Errorf("summary %d components sum = %v, want %v", i, comp, ep.Return)
		}
	}

	if _, err := m.Observe(snapshot(0, 0)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Observe after done err = %v", err)
	}
}

func TestGoalEndsEpisode(t *testing.T) {
	m := newMatch(t, config.Default())
	if err := m.Reset(snapshot(2, 1)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := m.Act([]int{0, 0}); err != nil {
		t.Fatalf("Act: %v", err)
	}
	res, err := m.Observe(snapshot(2, 1))
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if res.Done {
		t.Fatalf("unchanged score ended episode (%s)", res.Reason)
	}

	if _, err := m.Act([]int{0, 0}); err != nil {
		t.Fatalf("Act: %v", err)
	}
	res, err = m.Observe(snapshot(3, 1))
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if !res.Done || res.Reason != ReasonGoalScored {
		t.Errorf("result = (%v, %q), want (true, %q)", res.Done, res.Reason, ReasonGoalScored)
	}
}

func TestDiscountedReturn(t *testing.T) {
	cfg := config.Default()
	cfg.Derived.Gamma = 0.5
	m := newMatch(t, cfg)
	if err := m.Reset(snapshot(0, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	var want float64
	discount := 1.0
	for step := 0; step < 4; step++ {
		if _, err := m.Act([]int{0, 0}); err != nil {
			t.Fatalf("Act: %v", err)
		}
		res, err := m.Observe(snapshot(0, 0, 0))
		if err != nil {
			t.Fatalf("Observe: %v", err)
		}
		want += discount * res.Rewards[0]
		discount *= 0.5
	}

	summaries := m.Abort("recording_end")
	if len(summaries) != 2 {
		t.Fatalf("Abort returned %d summaries", len(summaries))
	}
	if math.Abs(summaries[0].Discounted-want) > 1e-12 {
		t.Errorf("discounted = %v, want %v", summaries[0].Discounted, want)
	}
	if summaries[0].Reason != "recording_end" {
		t.Errorf("reason = %q", summaries[0].Reason)
	}
	if m.Abort("again") != nil {
		t.Error("second Abort should return nil")
	}
}

func TestRejectedSnapshotLeavesStateUnchanged(t *testing.T) {
	m := newMatch(t, config.Default())
	aerial := componentIndex(t, m, reward.NameAerialTouch)
	if err := m.Reset(snapshot(0, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for step := 0; step < 3; step++ {
		if _, err := m.Act([]int{0, 0}); err != nil {
			t.Fatalf("Act: %v", err)
		}
		if _, err := m.Observe(snapshot(0, 0)); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}

	missing := snapshot(0, 0, 0)
	missing.Players = missing.Players[:1]
	if err := m.Reset(missing); !errors.Is(err, ErrMissingPlayer) {
		t.Fatalf("Reset missing car err = %v", err)
	}
	if _, err := m.Observe(missing); !errors.Is(err, ErrMissingPlayer) {
		t.Fatalf("Observe missing car err = %v", err)
	}
	if m.Episode() != 1 {
		t.Errorf("Episode() = %d, want 1", m.Episode())
	}

	// The rejected touch must not have started car 0's cooldown.
	if _, err := m.Act([]int{0, 0}); err != nil {
		t.Fatalf("Act: %v", err)
	}
	res, err := m.Observe(snapshot(0, 0, 0))
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if res.Step != 4 {
		t.Errorf("step = %d, want 4", res.Step)
	}
	if res.Breakdown[0][aerial] <= 0 {
		t.Errorf("aerial = %v, want > 0", res.Breakdown[0][aerial])
	}

	for _, s := range m.Abort("stop") {
		if s.Steps != 4 {
			t.Errorf("car %d steps = %d, want 4", s.CarID, s.Steps)
		}
	}
}

func TestAddAgentEnforcesTeamSize(t *testing.T) {
	m := newMatch(t, config.Default())
	if err := m.AddAgent(2, arena.BlueTeam); !errors.Is(err, ErrTeamFull) {
		t.Errorf("third car err = %v, want ErrTeamFull", err)
	}
	if err := m.AddAgent(3, 5); !errors.Is(err, ErrUnknownTeam) {
		t.Errorf("bad team err = %v, want ErrUnknownTeam", err)
	}

	cfg := config.Default()
	cfg.Match.TeamSize = 2
	wide := newMatch(t, cfg)
	if err := wide.AddAgent(2, arena.BlueTeam); err != nil {
		t.Errorf("2v2 second blue car: %v", err)
	}
	if wide.NumAgents() != 3 {
		t.Errorf("NumAgents() = %d, want 3", wide.NumAgents())
	}
}

func TestObserveBuildsObservations(t *testing.T) {
	m := newMatch(t, config.Default())
	if _, err := m.Observation(snapshot(0, 0)); err != nil {
		t.Fatalf("Observation before Reset: %v", err)
	}
	if err := m.Reset(snapshot(0, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := m.Act([]int{5, 100}); err != nil {
		t.Fatalf("Act: %v", err)
	}
	res, err := m.Observe(snapshot(0, 0))
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	r, c := res.Obs.Dims()
	if r != 2 || c != 107 {
		t.Fatalf("obs dims = %dx%d, want 2x107", r, c)
	}

	// Columns 9..16 hold the controls each agent just applied.
	table := action.NewTable()
	for row, idx := range []int{5, 100} {
		want, _ := table.Decode(idx)
		for j := 0; j < action.Dims; j++ {
			if got := res.Obs.At(row, 9+j); got != want[j] {
				t.Errorf("agent %d control %d = %v, want %v", row, j, got, want[j])
			}
		}
	}
}

func TestObserveReportsFired(t *testing.T) {
	m := newMatch(t, config.Default())
	aerial := componentIndex(t, m, reward.NameAerialTouch)
	if err := m.Reset(snapshot(0, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := m.Act([]int{0, 0}); err != nil {
		t.Fatalf("Act: %v", err)
	}
	res, err := m.Observe(snapshot(0, 0, 1))
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if res.Fired[0][aerial] || !res.Fired[1][aerial] {
		t.Errorf("aerial fired = %v / %v, want false / true", res.Fired[0][aerial], res.Fired[1][aerial])
	}
}
