package engine

import (
	"hysteria/experiments/metrics"
	"hysteria/game"
	"hysteria/searcher"
)

// Config is the construction-time planner configuration. Zero values fall
// back to the searcher defaults.
type Config struct {
	Rollouts      int
	Goroutines    int
	Exploration   float64
	Cutoff        int
	Seed          uint64
	WarmStart     bool
	Metrics       bool
	ArenaCapacity int
}

// options builds the searcher options of one agent's tree. Seeds are spread
// per agent so trees never share a random stream.
func (c Config) options(agent int) []searcher.Option {
	options := []searcher.Option{
		searcher.WithRollouts(c.Rollouts),
		searcher.WithGoroutines(c.Goroutines),
		searcher.WithExploration(c.Exploration),
		searcher.WithCutoff(c.Cutoff),
		searcher.WithSeed(c.Seed + uint64(agent)<<32),
		searcher.WithArenaCapacity(c.ArenaCapacity),
	}
	if c.WarmStart {
		options = append(options, searcher.WithWarmStart())
	}
	if c.Metrics {
		options = append(options, searcher.WithMetrics())
	}
	return options
}

// Engine owns the authoritative world, one search tree per agent and the
// simulation context that carries committed trajectories between turns.
// It is not safe for concurrent use.
type Engine struct {
	world  *game.World
	trees  []*searcher.Tree
	simCtx *game.SimulationContext
	last   []game.Action
	moves  []metrics.MoveMetric
	config Config
	hash   game.StateHash // world hash the trees were planted on
}

func NewEngine(world *game.World, config Config) *Engine {
	if world == nil {
		panic("Must specify an initial world")
	}
	e := &Engine{
		world:  world,
		trees:  make([]*searcher.Tree, world.AgentCount()),
		simCtx: game.NewSimulationContext(world.AgentCount(), world.Turn()),
		last:   make([]game.Action, world.AgentCount()),
		config: config,
		hash:   world.Hash(),
	}
	for i := range e.trees {
		e.trees[i] = searcher.NewTree(i, world, config.options(i)...)
		e.last[i] = game.Wait
	}
	return e
}

// State is the authoritative world. Callers may edit it between steps; the
// trees are replanted on the edited state at the next step.
func (e *Engine) State() *game.World {
	return e.world
}

func (e *Engine) Config() Config {
	return e.config
}

// PlannedAction is the action agent committed to offset turns from now.
// Unknown agents and negative offsets yield Wait.
func (e *Engine) PlannedAction(agent, offset int) game.Action {
	if offset < 0 {
		return game.Wait
	}
	return e.simCtx.PlannedAction(agent, e.simCtx.Baseline()+uint32(offset))
}

// Trajectory is the full plan committed for agent at the last step.
func (e *Engine) Trajectory(agent int) []game.Action {
	return e.simCtx.Trajectory(agent)
}

// LastActions returns a copy of the joint action vector of the last step.
func (e *Engine) LastActions() []game.Action {
	return append([]game.Action(nil), e.last...)
}

// Metrics returns the search metrics collected so far, one per agent per
// turn. Empty unless Config.Metrics is set.
func (e *Engine) Metrics() []metrics.MoveMetric {
	return append([]metrics.MoveMetric(nil), e.moves...)
}

// Children exposes the root statistics of an agent's tree.
func (e *Engine) Children(agent int) []searcher.ChildStat {
	if agent < 0 || agent >= len(e.trees) {
		return nil
	}
	return e.trees[agent].Children()
}

// Release drops the node arenas of every tree.
func (e *Engine) Release() {
	for _, tree := range e.trees {
		tree.Release()
	}
}
