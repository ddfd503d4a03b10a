package render

import (
	"bytes"
	"strings"
	"testing"

	"hysteria/game"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		world := game.NewWorld(4, 2, 2)
		world.SetCell(1, 0, game.Wall)
		world.SetCell(2, 0, game.Fire)
		world.SetCell(3, 1, game.PlayerObstacle)
		world.SetItem(0, 1, game.Coin)
		world.SetAgent(1, game.Agent{X: 1, Y: 1, Item: game.Hose, Score: 20})

		var buf bytes.Buffer
		require.NoError(t, Render(&buf, world, termenv.Ascii))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Equal(t, []string{
			"turn 0",
			"0#F.",
			"c1.O",
			"agent 0 at (0,0) carrying nothing score 0",
			"agent 1 at (1,1) carrying hose score 20",
		}, lines)
	})

	t.Run("lowest index wins a shared cell", func(t *testing.T) {
		world := game.NewWorld(2, 1, 3)
		world.SetAgent(2, game.Agent{X: 1, Y: 0})

		var buf bytes.Buffer
		require.NoError(t, Render(&buf, world, termenv.Ascii))

		require.True(t, strings.HasPrefix(buf.String(), "turn 0\n02\n"))
	})

	t.Run("coloured output", func(t *testing.T) {
		world := game.DemoMap()

		var buf bytes.Buffer
		require.NoError(t, Render(&buf, world, termenv.TrueColor))

		require.Contains(t, buf.String(), termenv.CSI, "Colour profiles should emit escape sequences")
	})
}

func TestPlan(t *testing.T) {
	require.Equal(t, "right use wait", Plan([]game.Action{game.MoveRight, game.UseItem, game.Wait}))
	require.Empty(t, Plan(nil))
}
