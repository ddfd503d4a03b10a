package game

// SimulationContext carries what a search needs about the other agents: the
// trajectories they committed to, the turn those trajectories start at, and
// per-rollout flags marking agents whose plan has already broken down.
type SimulationContext struct {
	trajectories [][]Action
	baseline     uint32
	waiting      []bool
}

func NewSimulationContext(agents int, baseline uint32) *SimulationContext {
	if agents < 0 {
		panic("agent count cannot be negative")
	}
	return &SimulationContext{
		trajectories: make([][]Action, agents),
		baseline:     baseline,
		waiting:      make([]bool, agents),
	}
}

func (c *SimulationContext) AgentCount() int { return len(c.trajectories) }

func (c *SimulationContext) Baseline() uint32 { return c.baseline }

func (c *SimulationContext) SetBaseline(turn uint32) { c.baseline = turn }

// SetTrajectory stores a copy of the committed plan for agent, where the
// first entry is the action for the baseline turn.
func (c *SimulationContext) SetTrajectory(agent int, trajectory []Action) {
	if agent < 0 || agent >= len(c.trajectories) {
		return
	}
	c.trajectories[agent] = append([]Action(nil), trajectory...)
}

// Trajectory returns a copy of the plan committed for agent.
func (c *SimulationContext) Trajectory(agent int) []Action {
	if agent < 0 || agent >= len(c.trajectories) {
		return nil
	}
	return append([]Action(nil), c.trajectories[agent]...)
}

// PlannedAction is the action agent committed to for the given absolute
// turn. Turns before the baseline or past the end of the plan, waiting
// agents and unknown agents all yield Wait.
func (c *SimulationContext) PlannedAction(agent int, turn uint32) Action {
	if c == nil || agent < 0 || agent >= len(c.trajectories) {
		return Wait
	}
	if c.waiting[agent] || turn < c.baseline {
		return Wait
	}
	offset := turn - c.baseline
	if offset >= uint32(len(c.trajectories[agent])) {
		return Wait
	}
	return c.trajectories[agent][offset]
}

// SetWaiting marks agent as stuck for the remainder of the current rollout.
func (c *SimulationContext) SetWaiting(agent int, waiting bool) {
	if c == nil || agent < 0 || agent >= len(c.waiting) {
		return
	}
	c.waiting[agent] = waiting
}

func (c *SimulationContext) Waiting(agent int) bool {
	if c == nil || agent < 0 || agent >= len(c.waiting) {
		return false
	}
	return c.waiting[agent]
}

// ResetTemporary clears every per-rollout flag.
func (c *SimulationContext) ResetTemporary() {
	for i := range c.waiting {
		c.waiting[i] = false
	}
}

// Fork returns a rollout-private view: trajectories are shared read-only and
// the temporary flags start cleared.
func (c *SimulationContext) Fork() *SimulationContext {
	return &SimulationContext{
		trajectories: append([][]Action(nil), c.trajectories...),
		baseline:     c.baseline,
		waiting:      make([]bool, len(c.waiting)),
	}
}

// Copy returns a deep copy, temporary flags included.
func (c *SimulationContext) Copy() *SimulationContext {
	d := &SimulationContext{
		trajectories: make([][]Action, len(c.trajectories)),
		baseline:     c.baseline,
		waiting:      append([]bool(nil), c.waiting...),
	}
	for i, t := range c.trajectories {
		d.trajectories[i] = append([]Action(nil), t...)
	}
	return d
}
