package game

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func singleAgentWorld(w, h, x, y int) *World {
	world := NewWorld(w, h, 1)
	world.SetAgent(0, Agent{X: x, Y: y})
	return world
}

func TestLegal(t *testing.T) {
	t.Run("moving into an obstacle", func(t *testing.T) {
		world := singleAgentWorld(5, 5, 2, 3)
		world.SetCell(3, 3, PlayerObstacle)

		require.False(t, world.Legal(0, MoveRight), "Agent should not walk into an obstacle")
		require.NotContains(t, world.LegalActions(0), MoveRight, "Legal actions should not list a blocked move")
		require.Contains(t, world.LegalActions(0), MoveLeft, "Legal actions should list an open move")
	})

	t.Run("moving off the grid", func(t *testing.T) {
		world := singleAgentWorld(3, 3, 0, 0)

		require.False(t, world.Legal(0, MoveUp), "Agent should not leave the grid")
		require.False(t, world.Legal(0, MoveLeft), "Agent should not leave the grid")
		require.True(t, world.Legal(0, MoveDown))
		require.True(t, world.Legal(0, MoveRight))
	})

	t.Run("item actions", func(t *testing.T) {
		world := singleAgentWorld(3, 3, 1, 1)

		require.False(t, world.Legal(0, Pickup), "Nothing to pick up")
		require.False(t, world.Legal(0, Drop), "Nothing to drop")
		require.False(t, world.Legal(0, UseItem), "Nothing to use")

		world.SetItem(1, 1, Food)
		require.True(t, world.Legal(0, Pickup))

		world.SetAgent(0, Agent{X: 1, Y: 1, Item: Hose})
		require.False(t, world.Legal(0, Drop), "Cannot drop onto an occupied item cell")
		require.True(t, world.Legal(0, UseItem))
	})

	t.Run("wait and unknown agents", func(t *testing.T) {
		world := singleAgentWorld(3, 3, 1, 1)

		require.True(t, world.Legal(0, Wait), "Wait is always legal")
		require.NotContains(t, world.LegalActions(0), Wait, "Wait is never enumerated")
		require.False(t, world.Legal(5, Wait), "Unknown agents have no legal actions")
		require.Nil(t, world.LegalActions(-1))
	})

	t.Run("legal actions mirror legality on random states", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for trial := 0; trial < 200; trial++ {
			world := randomWorld(rng)
			for agent := 0; agent < world.AgentCount(); agent++ {
				actions := world.LegalActions(agent)
				for _, action := range Decisions {
					require.Equal(t, world.Legal(agent, action), contains(actions, action),
						"Legal actions should list %v exactly when it is legal", action)
				}
			}
		}
	})
}

func TestApply(t *testing.T) {
	t.Run("picking up a coin", func(t *testing.T) {
		world := singleAgentWorld(3, 3, 1, 1)
		world.SetItem(1, 1, Coin)

		world.Apply(0, Pickup)

		agent, _ := world.Agent(0)
		require.Equal(t, None, world.Item(1, 1), "Coin should be consumed")
		require.Equal(t, Reward, agent.Score, "Coin should be worth exactly one reward")
		require.False(t, agent.HasItem, "Coin should never be carried")
		require.Equal(t, None, agent.Item)
	})

	t.Run("picking up swaps with the carried item", func(t *testing.T) {
		world := NewWorld(3, 3, 1)
		world.SetAgent(0, Agent{X: 1, Y: 1, Item: Food})
		world.SetItem(1, 1, Pickaxe)

		world.Apply(0, Pickup)

		agent, _ := world.Agent(0)
		require.Equal(t, Pickaxe, agent.Item)
		require.True(t, agent.HasItem)
		require.Equal(t, Food, world.Item(1, 1), "Carried item should be left behind")
	})

	t.Run("dropping an item", func(t *testing.T) {
		world := NewWorld(3, 3, 1)
		world.SetAgent(0, Agent{X: 1, Y: 1, Item: Hose})

		world.Apply(0, Drop)

		agent, _ := world.Agent(0)
		require.Equal(t, Hose, world.Item(1, 1))
		require.False(t, agent.HasItem)
		require.Equal(t, None, agent.Item)
	})

	t.Run("using a hose next to one fire", func(t *testing.T) {
		world := NewWorld(5, 5, 1)
		world.SetAgent(0, Agent{X: 2, Y: 2, Item: Hose})
		world.SetCell(2, 1, Fire)
		world.SetCell(4, 4, Fire)
		world.SetCell(0, 2, Fire)

		world.Apply(0, UseItem)

		require.Equal(t, Empty, world.Cell(2, 1), "Adjacent fire should be extinguished")
		require.Equal(t, Fire, world.Cell(4, 4), "Distant fire should keep burning")
		require.Equal(t, Fire, world.Cell(0, 2), "Distant fire should keep burning")
		require.Equal(t, Reward, world.Score(0))
	})

	t.Run("using a pickaxe on surrounding obstacles", func(t *testing.T) {
		world := DebugMap()
		world.SetCell(1, 3, PlayerObstacle)
		world.SetCell(2, 2, Fire)

		world.Apply(0, UseItem)

		require.Equal(t, Empty, world.Cell(3, 3))
		require.Equal(t, Empty, world.Cell(1, 3))
		require.Equal(t, Fire, world.Cell(2, 2), "Pickaxe should not touch fire")
		require.Equal(t, 2*Reward, world.Score(0))
	})

	t.Run("using food has no effect", func(t *testing.T) {
		world := NewWorld(3, 3, 1)
		world.SetAgent(0, Agent{X: 1, Y: 1, Item: Food})
		world.SetCell(1, 0, Fire)
		before := world.Clone()

		world.Apply(0, UseItem)

		require.Equal(t, before, world)
	})

	t.Run("illegal actions are waits", func(t *testing.T) {
		world := singleAgentWorld(5, 5, 2, 3)
		world.SetCell(3, 3, PlayerObstacle)
		before := world.Clone()

		world.Apply(0, MoveRight)
		world.Apply(0, Drop)
		world.Apply(3, MoveLeft)

		require.Equal(t, before, world)
	})

	t.Run("carry flag follows the carried item on random walks", func(t *testing.T) {
		rng := rand.New(rand.NewSource(11))
		for trial := 0; trial < 50; trial++ {
			world := randomWorld(rng)
			for step := 0; step < 40; step++ {
				agent := rng.Intn(world.AgentCount())
				world.Apply(agent, Action(rng.Intn(int(Wait)+1)))
				for i := 0; i < world.AgentCount(); i++ {
					a, _ := world.Agent(i)
					require.Equal(t, a.Item != None, a.HasItem, "Carry flag out of sync for agent %d", i)
				}
			}
		}
	})
}

func TestBounds(t *testing.T) {
	world := NewWorld(4, 4, 1)

	world.SetCell(-1, 0, Fire)
	world.SetCell(4, 4, Fire)
	world.SetItem(0, 9, Coin)

	require.Equal(t, Wall, world.Cell(-1, 0), "Outside the grid reads as wall")
	require.Equal(t, None, world.Item(0, 9), "Outside the grid holds no item")
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, Empty, world.Cell(x, y))
			require.Equal(t, None, world.Item(x, y))
		}
	}

	world.SetAgent(0, Agent{X: 10, Y: 1})
	agent, _ := world.Agent(0)
	require.Equal(t, 0, agent.X, "Out-of-range placement should be ignored")

	_, ok := world.Agent(1)
	require.False(t, ok)
	require.Zero(t, world.Score(1))
}

func TestAdvanceTurn(t *testing.T) {
	t.Run("joint actions in index order", func(t *testing.T) {
		world := NewWorld(5, 1, 2)
		world.SetAgent(0, Agent{X: 0, Y: 0})
		world.SetAgent(1, Agent{X: 2, Y: 0})
		world.SetCell(4, 0, Wall)

		world.AdvanceTurn([]Action{MoveRight, MoveRight})

		a0, _ := world.Agent(0)
		a1, _ := world.Agent(1)
		require.Equal(t, 1, a0.X)
		require.Equal(t, 3, a1.X)
		require.Equal(t, uint32(1), world.Turn())

		world.AdvanceTurn([]Action{MoveRight, MoveRight})
		a1, _ = world.Agent(1)
		require.Equal(t, 3, a1.X, "Agent should wait in front of the wall")
		require.Equal(t, uint32(2), world.Turn(), "Turn advances even when every action is illegal")
	})

	t.Run("missing actions wait", func(t *testing.T) {
		world := NewWorld(3, 3, 2)
		before := world.Clone()

		world.AdvanceTurn(nil)

		require.Equal(t, uint32(1), world.Turn())
		before.SetTurn(1)
		require.Equal(t, before, world)
	})

	t.Run("agents may share a cell", func(t *testing.T) {
		world := NewWorld(3, 1, 2)
		world.SetAgent(0, Agent{X: 0, Y: 0})
		world.SetAgent(1, Agent{X: 2, Y: 0})

		world.AdvanceTurn([]Action{MoveRight, MoveLeft})

		a0, _ := world.Agent(0)
		a1, _ := world.Agent(1)
		require.Equal(t, a0.X, a1.X)
	})
}

func TestAdvanceTurnForRollout(t *testing.T) {
	t.Run("other agents follow their trajectories", func(t *testing.T) {
		world := NewWorld(5, 5, 2)
		world.SetAgent(0, Agent{X: 0, Y: 0})
		world.SetAgent(1, Agent{X: 4, Y: 4})
		ctx := NewSimulationContext(2, 0)
		ctx.SetTrajectory(1, []Action{MoveUp, MoveLeft})

		world.AdvanceTurnForRollout(ctx, 0, MoveDown)
		world.AdvanceTurnForRollout(ctx, 0, MoveDown)
		world.AdvanceTurnForRollout(ctx, 0, MoveDown)

		a0, _ := world.Agent(0)
		a1, _ := world.Agent(1)
		require.Equal(t, 3, a0.Y)
		require.Equal(t, Agent{X: 3, Y: 3}, a1, "Agent should stop when its plan runs out")
		require.Equal(t, uint32(3), world.Turn())
		require.False(t, ctx.Waiting(1))
	})

	t.Run("broken plans park the agent", func(t *testing.T) {
		world := NewWorld(5, 5, 2)
		world.SetAgent(0, Agent{X: 0, Y: 0})
		world.SetAgent(1, Agent{X: 4, Y: 4})
		world.SetCell(4, 3, Wall)
		ctx := NewSimulationContext(2, 0)
		ctx.SetTrajectory(1, []Action{MoveUp, MoveLeft})

		world.AdvanceTurnForRollout(ctx, 0, Wait)
		world.AdvanceTurnForRollout(ctx, 0, Wait)

		a1, _ := world.Agent(1)
		require.True(t, ctx.Waiting(1), "Illegal planned action should mark the agent waiting")
		require.Equal(t, Agent{X: 4, Y: 4}, a1, "Waiting agent should stay put for the rest of the rollout")
	})

	t.Run("nil context parks everyone else", func(t *testing.T) {
		world := NewWorld(3, 3, 2)
		world.SetAgent(1, Agent{X: 2, Y: 2})

		world.AdvanceTurnForRollout(nil, 0, MoveRight)

		a0, _ := world.Agent(0)
		a1, _ := world.Agent(1)
		require.Equal(t, 1, a0.X)
		require.Equal(t, Agent{X: 2, Y: 2}, a1)
	})
}

func TestClone(t *testing.T) {
	world := DemoMap()
	world.SetItem(5, 5, Coin)
	world.AdvanceTurn(nil)

	clone := world.Clone()
	require.Equal(t, world, clone, "Clone should be identical")
	require.Equal(t, world.Hash(), clone.Hash())

	clone.SetCell(0, 6, Empty)
	clone.SetItem(5, 5, None)
	clone.SetAgent(0, Agent{X: 9, Y: 9, Item: Hose, Score: 30})
	clone.AdvanceTurn(nil)

	require.Equal(t, Fire, world.Cell(0, 6), "Mutating the clone should not touch the original grid")
	require.Equal(t, Coin, world.Item(5, 5), "Mutating the clone should not touch the original items")
	a0, _ := world.Agent(0)
	require.Equal(t, Agent{X: 2, Y: 1}, a0, "Mutating the clone should not touch the original agents")
	require.Equal(t, uint32(1), world.Turn())
	require.NotEqual(t, world.Hash(), clone.Hash())
}

func TestDemoMap(t *testing.T) {
	world := DemoMap()

	require.Equal(t, 16, world.Width())
	require.Equal(t, 16, world.Height())
	require.Equal(t, 3, world.AgentCount())
	require.Equal(t, Pickaxe, world.Item(2, 0))
	require.Equal(t, Hose, world.Item(0, 5))
	require.Equal(t, PlayerObstacle, world.Cell(1, 4))
	require.Equal(t, Fire, world.Cell(3, 12))

	rows := world.String()
	require.Len(t, rows, 16*17)
	require.Equal(t, "..p#", rows[:4])
}

func randomWorld(rng *rand.Rand) *World {
	w, h := 2+rng.Intn(5), 2+rng.Intn(5)
	world := NewWorld(w, h, 1+rng.Intn(3))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if rng.Intn(4) == 0 {
				world.SetCell(x, y, CellType(1+rng.Intn(3)))
			}
			if rng.Intn(3) == 0 {
				world.SetItem(x, y, ItemType(1+rng.Intn(4)))
			}
		}
	}
	for i := 0; i < world.AgentCount(); i++ {
		world.SetAgent(i, Agent{X: rng.Intn(w), Y: rng.Intn(h), Item: ItemType(rng.Intn(4))})
	}
	return world
}

func contains(actions []Action, action Action) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
