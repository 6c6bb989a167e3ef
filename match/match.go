// Package match drives one episode stream: it decodes policy indices for
// every controlled car, scores each simulator snapshot with that car's own
// reward set, and detects episode boundaries.
//
// The simulator itself is external. A caller alternates Act (send the
// decoded controls to the simulator) and Observe (hand back the resulting
// snapshot), calling Reset at every episode start.
package match

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/immortal/action"
	"github.com/pthm-cable/immortal/arena"
	"github.com/pthm-cable/immortal/config"
	"github.com/pthm-cable/immortal/obs"
	"github.com/pthm-cable/immortal/reward"
	"github.com/pthm-cable/immortal/terminal"
)

// Terminal reasons reported in StepResult and EpisodeSummary.
const (
	ReasonTimeout        = "timeout"
	ReasonNoTouchTimeout = "no_touch_timeout"
	ReasonGoalScored     = "goal_scored"
)

var (
	ErrDuplicateAgent = errors.New("agent already registered")
	ErrNoAgents       = errors.New("no agents registered")
	ErrAgentCount     = errors.New("action count does not match agent count")
	ErrMissingPlayer  = errors.New("agent missing from game state")
	ErrNotStarted     = errors.New("episode not started")
	ErrEpisodeActive  = errors.New("episode in progress")
	ErrUnknownTeam    = errors.New("unknown team")
	ErrTeamFull       = errors.New("team is full")
)

// StepResult is the outcome of one Observe call.
type StepResult struct {
	Step      int
	Rewards   []float64   // per agent, registration order
	Breakdown [][]float64 // per agent, weighted contribution per component
	Fired     [][]bool    // per agent, components that triggered this step
	Obs       *mat.Dense  // one observation row per agent
	Done      bool
	Reason    string
	Episodes  []EpisodeSummary // one per agent when Done
}

// EpisodeSummary closes out one agent's episode.
type EpisodeSummary struct {
	Episode    int
	CarID      int
	Team       int
	Steps      int
	Return     float64
	Discounted float64
	Reason     string
	Components []float64
}

// Match owns the per-agent reward state for one stream of episodes.
// It is not safe for concurrent use; the action table it holds may be
// shared with other matches.
type Match struct {
	world *ecs.World
	table *action.Table

	rewardsCfg config.RewardsConfig
	teamSize   int
	gamma      float64
	terminals  *terminal.Set
	names      []string

	agentMap    *ecs.Map4[Agent, Rewards, Controls, Return]
	agentFilter *ecs.Filter4[Agent, Rewards, Controls, Return]
	agents      []ecs.Entity
	byCar       map[int]ecs.Entity

	episode int
	step    int
	started bool
}

// New creates a match. The reward configuration is validated here so a bad
// config fails before any agent is added.
func New(cfg *config.Config, table *action.Table) (*Match, error) {
	set, err := reward.FromConfig(cfg.Rewards)
	if err != nil {
		return nil, fmt.Errorf("building reward set: %w", err)
	}

	timeout, err := terminal.NewTimeout(cfg.Derived.TimeoutSteps)
	if err != nil {
		return nil, err
	}
	noTouch, err := terminal.NewNoTouchTimeout(cfg.Derived.NoTouchTimeoutSteps)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	return &Match{
		world:      world,
		table:      table,
		rewardsCfg: cfg.Rewards,
		teamSize:   cfg.Match.TeamSize,
		gamma:      cfg.Derived.Gamma,
		terminals: terminal.Any(
			terminal.Named{Name: ReasonTimeout, Condition: timeout},
			terminal.Named{Name: ReasonNoTouchTimeout, Condition: noTouch},
			terminal.Named{Name: ReasonGoalScored, Condition: terminal.NewGoalScored()},
		),
		names:       set.Names(),
		agentMap:    ecs.NewMap4[Agent, Rewards, Controls, Return](world),
		agentFilter: ecs.NewFilter4[Agent, Rewards, Controls, Return](world),
		byCar:       make(map[int]ecs.Entity),
	}, nil
}

// ComponentNames returns reward component names in breakdown order.
func (m *Match) ComponentNames() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// NumAgents returns the number of registered agents.
func (m *Match) NumAgents() int {
	return len(m.agents)
}

// CarIDs returns agent car ids in registration order.
func (m *Match) CarIDs() []int {
	ids := make([]int, len(m.agents))
	for i, e := range m.agents {
		agent, _, _, _ := m.agentMap.Get(e)
		ids[i] = agent.CarID
	}
	return ids
}

// Episode returns the number of episodes started so far.
func (m *Match) Episode() int {
	return m.episode
}

// AddAgent registers a controlled car with its own reward set. Each team
// takes at most match.team_size agents.
func (m *Match) AddAgent(carID, team int) error {
	if m.started {
		return ErrEpisodeActive
	}
	if _, ok := m.byCar[carID]; ok {
		return fmt.Errorf("%w: car %d", ErrDuplicateAgent, carID)
	}
	if team != arena.BlueTeam && team != arena.OrangeTeam {
		return fmt.Errorf("%w: %d for car %d", ErrUnknownTeam, team, carID)
	}
	if n := m.teamCount(team); n >= m.teamSize {
		return fmt.Errorf("%w: team %d already has %d agents", ErrTeamFull, team, n)
	}
	set, err := reward.FromConfig(m.rewardsCfg)
	if err != nil {
		return fmt.Errorf("building reward set for car %d: %w", carID, err)
	}

	e := m.agentMap.NewEntity(
		&Agent{CarID: carID, Team: team, Slot: len(m.agents)},
		&Rewards{Set: set, Breakdown: make([]float64, set.Len()), Fired: make([]bool, set.Len())},
		&Controls{Index: -1},
		&Return{},
	)
	m.agents = append(m.agents, e)
	m.byCar[carID] = e

	slog.Debug("agent registered", "car_id", carID, "team", team, "slot", len(m.agents)-1)
	return nil
}

// Reset starts a new episode from the given initial snapshot.
func (m *Match) Reset(initial *arena.GameState) error {
	if len(m.agents) == 0 {
		return ErrNoAgents
	}

	if err := m.checkPlayers(initial); err != nil {
		return err
	}

	query := m.agentFilter.Query()
	for query.Next() {
		_, rewards, controls, ret := query.Get()
		rewards.Set.Reset(initial)
		clear(rewards.Breakdown)
		clear(rewards.Fired)
		*controls = Controls{Index: -1}
		ret.reset(rewards.Set.Len())
	}
	m.terminals.Reset(initial)

	m.episode++
	m.step = 0
	m.started = true
	return nil
}

// Act decodes one policy index per agent (registration order) and records
// the vectors as each agent's previous controls for the next Observe.
func (m *Match) Act(indices []int) ([]action.Vector, error) {
	if !m.started {
		return nil, ErrNotStarted
	}
	if len(indices) != len(m.agents) {
		return nil, fmt.Errorf("%w: %d actions for %d agents", ErrAgentCount, len(indices), len(m.agents))
	}
	vectors, err := m.table.DecodeBatch(indices)
	if err != nil {
		return nil, err
	}
	for i, e := range m.agents {
		_, _, controls, _ := m.agentMap.Get(e)
		controls.Previous = vectors[i]
		controls.Index = indices[i]
	}
	return vectors, nil
}

// Observe scores the snapshot produced by the last Act and checks for the
// end of the episode. Once Done is reported, Reset must be called again.
func (m *Match) Observe(state *arena.GameState) (StepResult, error) {
	if !m.started {
		return StepResult{}, ErrNotStarted
	}

	if err := m.checkPlayers(state); err != nil {
		return StepResult{}, fmt.Errorf("step %d: %w", m.step, err)
	}

	batch, err := m.Observation(state)
	if err != nil {
		return StepResult{}, err
	}

	res := StepResult{
		Rewards:   make([]float64, len(m.agents)),
		Breakdown: make([][]float64, len(m.agents)),
		Fired:     make([][]bool, len(m.agents)),
		Obs:       batch,
	}

	for i, e := range m.agents {
		agent, rewards, controls, ret := m.agentMap.Get(e)
		player, _ := state.Player(agent.CarID)
		total := rewards.Set.ComputeBreakdown(player, state, controls.Previous, rewards.Breakdown)
		ret.add(total, rewards.Breakdown, m.gamma)

		res.Rewards[i] = total
		res.Breakdown[i] = append([]float64(nil), rewards.Breakdown...)
		res.Fired[i] = append([]bool(nil), rewards.Set.Fired(rewards.Fired)...)
	}

	m.step++
	res.Step = m.step
	res.Reason, res.Done = m.terminals.Check(state)
	if res.Done {
		res.Episodes = m.closeEpisode(res.Reason)
	}
	return res, nil
}

// Observation builds one policy input row per agent, in registration order,
// from state and each agent's previous controls. Call it after Reset for the
// first action of an episode.
func (m *Match) Observation(state *arena.GameState) (*mat.Dense, error) {
	if len(m.agents) == 0 {
		return nil, ErrNoAgents
	}
	ids := make([]int, len(m.agents))
	prev := make([]action.Vector, len(m.agents))
	for i, e := range m.agents {
		agent, _, controls, _ := m.agentMap.Get(e)
		ids[i] = agent.CarID
		prev[i] = controls.Previous
	}
	batch, err := obs.Batch(state, ids, prev)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingPlayer, err)
	}
	return batch, nil
}

func (m *Match) teamCount(team int) int {
	n := 0
	for _, e := range m.agents {
		agent, _, _, _ := m.agentMap.Get(e)
		if agent.Team == team {
			n++
		}
	}
	return n
}

// checkPlayers fails unless every agent's car is in the snapshot. It runs
// before any agent state changes so a rejected snapshot leaves none behind.
func (m *Match) checkPlayers(state *arena.GameState) error {
	for _, e := range m.agents {
		agent, _, _, _ := m.agentMap.Get(e)
		if _, ok := state.Player(agent.CarID); !ok {
			return fmt.Errorf("%w: car %d", ErrMissingPlayer, agent.CarID)
		}
	}
	return nil
}

// closeEpisode summarises every agent's return and ends the episode.
func (m *Match) closeEpisode(reason string) []EpisodeSummary {
	out := make([]EpisodeSummary, 0, len(m.agents))
	for _, e := range m.agents {
		agent, _, _, ret := m.agentMap.Get(e)
		out = append(out, EpisodeSummary{
			Episode:    m.episode,
			CarID:      agent.CarID,
			Team:       agent.Team,
			Steps:      ret.Steps,
			Return:     ret.Total,
			Discounted: ret.Discounted,
			Reason:     reason,
			Components: append([]float64(nil), ret.Components...),
		})
	}
	m.started = false

	slog.Debug("episode finished", "episode", m.episode, "steps", m.step, "reason", reason)
	return out
}

// Abort ends the current episode without a terminal condition (for example
// when a recording ends mid-episode) and returns the partial summaries.
func (m *Match) Abort(reason string) []EpisodeSummary {
	if !m.started {
		return nil
	}
	return m.closeEpisode(reason)
}
