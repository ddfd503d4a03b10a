package game

import (
	"encoding/binary"
	"hash/fnv"
)

// Reward granted for a coin pickup and for every cell cleared with a tool.
const Reward = 10

// World is the grid, item layer and agents at a given turn. Storage is flat
// and every coordinate access is bounds-checked: out-of-range reads return a
// neutral value and out-of-range writes are ignored.
type World struct {
	width  int
	height int
	grid   []CellType
	items  []ItemType
	agents []Agent
	turn   uint32
}

// NewWorld returns an empty width x height world with the given number of
// agents, all standing at (0, 0).
func NewWorld(width, height, agents int) *World {
	if width <= 0 || height <= 0 {
		panic("world dimensions must be positive")
	}
	if agents < 0 {
		panic("agent count cannot be negative")
	}
	return &World{
		width:  width,
		height: height,
		grid:   make([]CellType, width*height),
		items:  make([]ItemType, width*height),
		agents: make([]Agent, agents),
	}
}

func (w *World) Width() int      { return w.width }
func (w *World) Height() int     { return w.height }
func (w *World) AgentCount() int { return len(w.agents) }
func (w *World) Turn() uint32    { return w.turn }

// SetTurn overrides the turn counter, used when loading scenarios.
func (w *World) SetTurn(turn uint32) { w.turn = turn }

func (w *World) InBounds(x, y int) bool {
	return x >= 0 && x < w.width && y >= 0 && y < w.height
}

func (w *World) index(x, y int) (int, bool) {
	if !w.InBounds(x, y) {
		return 0, false
	}
	return y*w.width + x, true
}

// Cell returns the terrain at (x, y). Outside the grid reads as Wall.
func (w *World) Cell(x, y int) CellType {
	i, ok := w.index(x, y)
	if !ok {
		return Wall
	}
	return w.grid[i]
}

func (w *World) SetCell(x, y int, c CellType) {
	if i, ok := w.index(x, y); ok {
		w.grid[i] = c
	}
}

// Item returns the item lying at (x, y). Outside the grid reads as None.
func (w *World) Item(x, y int) ItemType {
	i, ok := w.index(x, y)
	if !ok {
		return None
	}
	return w.items[i]
}

func (w *World) SetItem(x, y int, item ItemType) {
	if i, ok := w.index(x, y); ok {
		w.items[i] = item
	}
}

func (w *World) validAgent(agent int) bool {
	return agent >= 0 && agent < len(w.agents)
}

// Agent returns a copy of an agent's state.
func (w *World) Agent(agent int) (Agent, bool) {
	if !w.validAgent(agent) {
		return Agent{}, false
	}
	return w.agents[agent], true
}

// SetAgent replaces an agent's state. Positions outside the grid are
// rejected and the carry flag is normalised from the carried item.
func (w *World) SetAgent(agent int, a Agent) {
	if !w.validAgent(agent) || !w.InBounds(a.X, a.Y) {
		return
	}
	a.HasItem = a.Item != None
	w.agents[agent] = a
}

func (w *World) Score(agent int) int {
	if !w.validAgent(agent) {
		return 0
	}
	return w.agents[agent].Score
}

// Legal reports whether agent can execute action in the current state.
func (w *World) Legal(agent int, action Action) bool {
	if !w.validAgent(agent) {
		return false
	}
	a := &w.agents[agent]
	if dx, dy, ok := action.delta(); ok {
		x, y := a.X+dx, a.Y+dy
		return w.InBounds(x, y) && w.Cell(x, y) == Empty
	}
	switch action {
	case Pickup:
		return w.Item(a.X, a.Y) != None
	case Drop:
		return a.HasItem && w.Item(a.X, a.Y) == None
	case UseItem:
		return a.HasItem && a.Item != None
	case Wait:
		return true
	}
	return false
}

// LegalActions lists every legal decision for agent, in Decisions order.
func (w *World) LegalActions(agent int) []Action {
	if !w.validAgent(agent) {
		return nil
	}
	actions := make([]Action, 0, len(Decisions))
	for _, action := range Decisions {
		if w.Legal(agent, action) {
			actions = append(actions, action)
		}
	}
	return actions
}

// Apply executes action for agent. Illegal actions are treated as Wait.
func (w *World) Apply(agent int, action Action) {
	if !w.Legal(agent, action) {
		return
	}
	a := &w.agents[agent]
	if dx, dy, ok := action.delta(); ok {
		a.X += dx
		a.Y += dy
		return
	}
	switch action {
	case Pickup:
		w.pickup(a)
	case Drop:
		w.SetItem(a.X, a.Y, a.Item)
		a.Item = None
		a.HasItem = false
	case UseItem:
		switch a.Item {
		case Hose:
			w.clearNeighbours(a, Fire)
		case Pickaxe:
			w.clearNeighbours(a, PlayerObstacle)
		}
	}
}

// pickup swaps the carried item with the one underneath. Coins are consumed
// on the spot and converted to score.
func (w *World) pickup(a *Agent) {
	item := w.Item(a.X, a.Y)
	if item == Coin {
		a.Score += Reward
		w.SetItem(a.X, a.Y, None)
		return
	}
	w.SetItem(a.X, a.Y, a.Item)
	a.Item = item
	a.HasItem = true
}

func (w *World) clearNeighbours(a *Agent, target CellType) {
	for _, dir := range Decisions[:4] {
		dx, dy, _ := dir.delta()
		x, y := a.X+dx, a.Y+dy
		if w.InBounds(x, y) && w.Cell(x, y) == target {
			w.SetCell(x, y, Empty)
			a.Score += Reward
		}
	}
}

// AdvanceTurn applies the joint action vector, agent by agent in index
// order, and moves the turn counter forward by one. Missing entries wait.
func (w *World) AdvanceTurn(actions []Action) {
	for i := range w.agents {
		if i < len(actions) {
			w.Apply(i, actions[i])
		}
	}
	w.turn++
}

// AdvanceTurnForRollout advances a rollout-private world by one turn. The
// searching agent plays action; every other agent follows its committed
// trajectory from ctx and is parked for the rest of the rollout as soon as
// its planned action turns out to be illegal.
func (w *World) AdvanceTurnForRollout(ctx *SimulationContext, agent int, action Action) {
	for i := range w.agents {
		if i == agent {
			w.Apply(i, action)
			continue
		}
		step := ctx.PlannedAction(i, w.turn)
		if !w.Legal(i, step) {
			ctx.SetWaiting(i, true)
			continue
		}
		w.Apply(i, step)
	}
	w.turn++
}

// Clone returns a deep copy sharing no memory with w.
func (w *World) Clone() *World {
	c := &World{
		width:  w.width,
		height: w.height,
		grid:   make([]CellType, len(w.grid)),
		items:  make([]ItemType, len(w.items)),
		agents: make([]Agent, len(w.agents)),
		turn:   w.turn,
	}
	copy(c.grid, w.grid)
	copy(c.items, w.items)
	copy(c.agents, w.agents)
	return c
}

// Hash digests the full state, turn counter included.
func (w *World) Hash() StateHash {
	h := fnv.New64a()
	buf := make([]byte, 8)
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf, v)
		h.Write(buf)
	}
	write(uint64(w.width))
	write(uint64(w.height))
	write(uint64(w.turn))
	for i := range w.grid {
		h.Write([]byte{byte(w.grid[i]), byte(w.items[i])})
	}
	for _, a := range w.agents {
		write(uint64(a.X))
		write(uint64(a.Y))
		write(uint64(a.Item))
		write(uint64(a.Score))
	}
	return StateHash(h.Sum64())
}
