package engine

import (
	"context"
	"testing"

	"hysteria/game"

	"github.com/stretchr/testify/require"
)

var testConfig = Config{Rollouts: 200, Goroutines: 2, Seed: 5}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestStep(t *testing.T) {
	t.Run("advancing the demo map by one turn", func(t *testing.T) {
		world := game.DemoMap()
		e := NewEngine(world, testConfig)
		before := make([]game.Agent, world.AgentCount())
		for i := range before {
			before[i], _ = world.Agent(i)
		}

		actions := e.Step()

		require.Equal(t, uint32(1), e.State().Turn(), "Turn should advance by exactly one")
		require.Len(t, actions, 3)
		require.Equal(t, actions, e.LastActions())
		for i := range before {
			after, _ := e.State().Agent(i)
			dx, dy := abs(after.X-before[i].X), abs(after.Y-before[i].Y)
			require.LessOrEqual(t, dx+dy, 1, "Agent %d should move at most one cell along one axis", i)
		}
	})

	t.Run("advancing when nobody can act", func(t *testing.T) {
		world := game.NewWorld(1, 1, 2)
		e := NewEngine(world, testConfig)

		actions := e.Step()
		e.Step()

		require.Equal(t, []game.Action{game.Wait, game.Wait}, actions)
		require.Equal(t, uint32(2), world.Turn())
	})

	t.Run("advancing a world without agents", func(t *testing.T) {
		world := game.NewWorld(2, 2, 0)
		e := NewEngine(world, testConfig)

		require.Empty(t, e.Step())
		require.Equal(t, uint32(1), world.Turn())
	})

	t.Run("committing trajectories", func(t *testing.T) {
		world := game.DemoMap()
		e := NewEngine(world, testConfig)

		e.Step()

		for i := 0; i < world.AgentCount(); i++ {
			trajectory := e.Trajectory(i)
			for offset, action := range trajectory {
				require.Equal(t, action, e.PlannedAction(i, offset), "Offset 0 should be the next planned action")
			}
			require.Equal(t, game.Wait, e.PlannedAction(i, len(trajectory)))
		}
		require.Equal(t, game.Wait, e.PlannedAction(7, 0), "Unknown agents should wait")
		require.Equal(t, game.Wait, e.PlannedAction(0, -1))
	})

	t.Run("returning copies", func(t *testing.T) {
		e := NewEngine(game.DemoMap(), testConfig)
		e.Step()

		last := e.LastActions()
		last[0] = game.Drop
		require.NotEqual(t, last, e.LastActions())
	})

	t.Run("replanting after an edit", func(t *testing.T) {
		world := game.DebugMap()
		e := NewEngine(world, Config{Rollouts: 500, Goroutines: 1, Seed: 2})
		world.SetCell(3, 3, game.Empty)
		world.SetItem(2, 3, game.Coin)

		actions := e.Step()

		require.Equal(t, game.Pickup, actions[0], "Edited coin should be picked up")
		require.Equal(t, game.Reward, world.Score(0))
	})

	t.Run("cancelling a step", func(t *testing.T) {
		world := game.DemoMap()
		e := NewEngine(world, testConfig)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		actions, err := e.StepContext(ctx)

		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, actions)
		require.Zero(t, world.Turn(), "Cancelled step should not advance the world")
	})
}

func TestRun(t *testing.T) {
	t.Run("running several turns with metrics", func(t *testing.T) {
		world := game.DemoMap()
		config := testConfig
		config.Metrics = true
		config.WarmStart = true
		e := NewEngine(world, config)

		played, err := e.Run(context.Background(), 3)

		require.NoError(t, err)
		require.Equal(t, 3, played)
		require.Equal(t, uint32(3), world.Turn())
		moves := e.Metrics()
		require.Len(t, moves, 9, "One metric per agent per turn")
		require.Equal(t, 2, moves[8].Step)
		require.Equal(t, 2, moves[8].Player)
		require.Equal(t, 200, moves[0].Episodes)
		require.NotEmpty(t, e.Children(0), "Warm start should pre-expand the root")
	})

	t.Run("collecting no metrics by default", func(t *testing.T) {
		e := NewEngine(game.DemoMap(), testConfig)

		_, err := e.Run(context.Background(), 1)

		require.NoError(t, err)
		require.Empty(t, e.Metrics())
		require.Nil(t, e.Children(5))
	})

	t.Run("rejecting a missing world", func(t *testing.T) {
		require.Panics(t, func() { NewEngine(nil, testConfig) })
	})
}
