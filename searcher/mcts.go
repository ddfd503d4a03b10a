package searcher

import (
	"context"
	"sync"
	"sync/atomic"

	"hysteria/experiments/metrics"
	"hysteria/game"
	"hysteria/meta"
	"hysteria/utils"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// Jitter bounds the tie-break noise added to visit counts in BestAction.
const Jitter = 1e-3

type Option func(t *Tree)

func WithRollouts(rollouts int) Option {
	return func(t *Tree) {
		if rollouts > 0 {
			t.rollouts = rollouts
		}
	}
}

func WithGoroutines(goroutines int) Option {
	return func(t *Tree) {
		if goroutines > 0 {
			t.goroutines = goroutines
		}
	}
}

func WithExploration(c float64) Option {
	return func(t *Tree) {
		if c > 0 {
			t.exploration = c
		}
	}
}

func WithCutoff(depth int) Option {
	return func(t *Tree) {
		if depth > 0 {
			t.cutoff = depth
		}
	}
}

func WithSeed(seed uint64) Option {
	return func(t *Tree) {
		t.seed = seed
	}
}

func WithArenaCapacity(nodes int) Option {
	return func(t *Tree) {
		if nodes > 0 {
			t.capacity = nodes
		}
	}
}

// WithWarmStart carries root child statistics over a Reset as archived
// statistics.
func WithWarmStart() Option {
	return func(t *Tree) {
		t.warmStart = true
	}
}

func WithMetrics() Option {
	return func(t *Tree) {
		t.metrics = metrics.NewCollector()
	}
}

// Tree is the search tree of a single agent. Search runs a fixed number of
// rollouts over a pool of goroutines sharing the tree; everything else is
// meant to be called between searches.
type Tree struct {
	agent       int
	goroutines  int
	rollouts    int
	exploration float64
	cutoff      int
	seed        uint64
	capacity    int
	warmStart   bool
	metrics     metrics.Collector

	world      *game.World
	nodes      *arena
	generation uint64
	rng        *rand.Rand
	exhausted  atomic.Bool
}

// ChildStat summarises one child of the root.
type ChildStat struct {
	Action     game.Action `json:"action"`
	Visits     int64       `json:"visits"`
	Mean       float64     `json:"mean"`
	PastVisits int64       `json:"pastVisits"`
	Blended    float64     `json:"blended"`
}

func NewTree(agent int, world *game.World, options ...Option) *Tree {
	if world == nil {
		panic("Must specify a world to search")
	}
	if agent < 0 || agent >= world.AgentCount() {
		panic("Must specify an agent of the world")
	}
	t := &Tree{ // Default values
		agent:       agent,
		goroutines:  meta.GO_ROUTINES,
		rollouts:    meta.ROLLOUTS,
		exploration: meta.EXPLORATION,
		cutoff:      meta.WITH_CUTOFF,
		metrics:     metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(t)
	}
	if t.capacity <= 0 {
		// Every rollout expands at most one leaf, plus a warm-started root
		t.capacity = (t.rollouts+1)*len(game.Decisions) + 1
	}
	t.nodes = newArena(t.capacity)
	t.rng = rand.New(rand.NewSource(t.seed))
	t.plant(world)
	t.metrics.SetTreeReset(true)
	return t
}

func (t *Tree) Agent() int { return t.agent }

// Reset rebuilds the tree from scratch for a new root state, recycling the
// arena. With warm start enabled the new root is expanded immediately and
// children for actions the previous root also had inherit its statistics as
// archived statistics.
func (t *Tree) Reset(world *game.World) {
	var actions []game.Action
	var stats []ChildStat
	if t.warmStart {
		stats = t.Children()
		for _, s := range stats {
			actions = append(actions, s.Action)
		}
	}

	t.nodes.reset()
	t.exhausted.Store(false)
	t.plant(world)
	t.metrics.SetTreeReset(true)

	if !t.warmStart || len(stats) == 0 {
		return
	}
	root := t.nodes.get(0)
	t.expand(0, root, t.world, t.rng)
	for i := int32(0); i < root.count; i++ {
		child := t.nodes.get(root.first + i)
		if j := utils.FindIndex(actions, child.action); j >= 0 {
			child.pastVisits = stats[j].Visits
			child.pastValue = stats[j].Mean * float64(stats[j].Visits)
		}
	}
	t.metrics.SetTreeReset(false)
}

// Release drops the node arena. The tree must be Reset before it is searched
// again.
func (t *Tree) Release() {
	t.nodes.release()
}

func (t *Tree) plant(world *game.World) {
	t.world = world.Clone()
	first, ok := t.nodes.alloc(1)
	if !ok {
		panic("arena cannot hold a root node")
	}
	root := t.nodes.get(first)
	root.reset()
}

// Search runs the rollout budget against simCtx and blocks until done.
func (t *Tree) Search(simCtx *game.SimulationContext) metrics.SearchMetric {
	return t.SearchContext(context.Background(), simCtx)
}

// SearchContext is Search with cancellation, polled between rollouts.
func (t *Tree) SearchContext(ctx context.Context, simCtx *game.SimulationContext) metrics.SearchMetric {
	if simCtx == nil {
		simCtx = game.NewSimulationContext(t.world.AgentCount(), t.world.Turn())
	}
	if t.nodes.len() == 0 {
		t.plant(t.world)
	}
	t.generation++
	t.metrics.Start(t.agent, t.goroutines, t.cutoff)

	var claimed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < t.goroutines; i++ {
		wg.Add(1)
		seed := t.seed + t.generation*uint64(t.goroutines) + uint64(i)
		go func() {
			defer wg.Done()

			rng := rand.New(rand.NewSource(seed))
			for ctx.Err() == nil && claimed.Add(1) <= int64(t.rollouts) {
				t.rollout(simCtx, rng)
				t.metrics.AddEpisode()
			}
		}()
	}
	wg.Wait()

	t.metrics.SetNodes(t.Size())
	metric := t.metrics.Complete()
	log.Debug().Msgf("agent %d searched %d nodes", t.agent, t.Size())
	return metric
}

// rollout performs one Select, Expand, Simulate, Backpropagate cycle on a
// private copy of the root state.
func (t *Tree) rollout(simCtx *game.SimulationContext, rng *rand.Rand) {
	world := t.world.Clone()
	ctx := simCtx.Fork()

	idx := int32(0)
	n := t.nodes.get(idx)
	for n.expanded.Load() && n.count > 0 {
		idx = t.selectChild(n)
		n = t.nodes.get(idx)
		world.AdvanceTurnForRollout(ctx, t.agent, n.action)
	}

	t.expand(idx, n, world, rng)
	reward := t.simulate(world, ctx, rng)
	t.backup(idx, reward)
}

func (t *Tree) selectChild(parent *node) int32 {
	parentVisits := parent.visits.Load()
	best := parent.first
	bestScore := -1e18
	for i := parent.first; i < parent.first+parent.count; i++ {
		child := t.nodes.get(i)
		score := uct(child.blendedValue(), child.virtualLoss.Load(), child.visits.Load(), parentVisits, t.exploration)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	t.nodes.get(best).virtualLoss.Add(1)
	return best
}

func (t *Tree) expand(idx int32, n *node, world *game.World, rng *rand.Rand) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.expanded.Load() {
		return
	}

	actions := world.LegalActions(t.agent)
	rng.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
	})

	if len(actions) > 0 {
		first, ok := t.nodes.alloc(int32(len(actions)))
		if !ok {
			if t.exhausted.CompareAndSwap(false, true) {
				log.Warn().Msgf("agent %d node arena is full at %d nodes, leaves stay unexpanded", t.agent, t.nodes.capacity())
			}
			return
		}
		for i, action := range actions {
			child := t.nodes.get(first + int32(i))
			child.reset()
			child.action = action
			child.parent = idx
			child.depth = n.depth + 1
		}
		n.first = first
		n.count = int32(len(actions))
	}
	n.expanded.Store(true)
}

// simulate plays random legal actions up to the cutoff and returns the
// agent's score.
func (t *Tree) simulate(world *game.World, ctx *game.SimulationContext, rng *rand.Rand) float64 {
	for depth := 0; depth < t.cutoff; depth++ {
		actions := world.LegalActions(t.agent)
		if len(actions) == 0 {
			t.metrics.AddFullPlayout()
			break
		}
		world.AdvanceTurnForRollout(ctx, t.agent, actions[rng.Intn(len(actions))])
	}
	return float64(world.Score(t.agent))
}

func (t *Tree) backup(idx int32, reward float64) {
	for idx != noParent {
		n := t.nodes.get(idx)
		n.visits.Add(1)
		n.addValue(reward)
		if n.parent != noParent {
			n.virtualLoss.Add(-1)
		}
		idx = n.parent
	}
}

// BestAction returns the root child with the most visits, ties broken by a
// small random jitter. Wait when the root has no children.
func (t *Tree) BestAction() game.Action {
	root := t.root()
	if root == nil || !root.expanded.Load() || root.count == 0 {
		return game.Wait
	}
	best := game.Wait
	bestScore := -1.0
	for i := root.first; i < root.first+root.count; i++ {
		child := t.nodes.get(i)
		score := float64(child.visits.Load()) + t.rng.Float64()*Jitter
		if score > bestScore {
			bestScore = score
			best = child.action
		}
	}
	return best
}

// BestTrajectory follows the most visited child from the root until it
// reaches an unexpanded node.
func (t *Tree) BestTrajectory() []game.Action {
	var trajectory []game.Action
	n := t.root()
	for n != nil && n.expanded.Load() && n.count > 0 {
		best := n.first
		for i := n.first + 1; i < n.first+n.count; i++ {
			if t.nodes.get(i).visits.Load() > t.nodes.get(best).visits.Load() {
				best = i
			}
		}
		n = t.nodes.get(best)
		trajectory = append(trajectory, n.action)
	}
	return trajectory
}

// ArchiveAndResetStats moves the current statistics of the root children
// into their archived statistics and starts a new epoch.
func (t *Tree) ArchiveAndResetStats() {
	root := t.root()
	if root == nil || !root.expanded.Load() {
		return
	}
	for i := root.first; i < root.first+root.count; i++ {
		child := t.nodes.get(i)
		child.pastVisits = child.visits.Load()
		child.pastValue = child.totalValue()
		child.visits.Store(0)
		child.value.Store(0)
	}
}

// Children lists the root children in expansion order.
func (t *Tree) Children() []ChildStat {
	root := t.root()
	if root == nil || !root.expanded.Load() {
		return nil
	}
	stats := make([]ChildStat, 0, root.count)
	for i := root.first; i < root.first+root.count; i++ {
		child := t.nodes.get(i)
		stats = append(stats, ChildStat{
			Action:     child.action,
			Visits:     child.visits.Load(),
			Mean:       child.meanValue(),
			PastVisits: child.pastVisits,
			Blended:    child.blendedValue(),
		})
	}
	return stats
}

func (t *Tree) RootVisits() int64 {
	root := t.root()
	if root == nil {
		return 0
	}
	return root.visits.Load()
}

// root is nil after Release.
func (t *Tree) root() *node {
	if t.nodes.len() == 0 {
		return nil
	}
	return t.nodes.get(0)
}

// Size is the number of nodes allocated in the current generation.
func (t *Tree) Size() int {
	return t.nodes.len()
}

func (t *Tree) MaxDepth() int {
	depth := int32(0)
	for i := int32(0); i < int32(t.nodes.len()); i++ {
		if d := t.nodes.get(i).depth; d > depth {
			depth = d
		}
	}
	return int(depth)
}
