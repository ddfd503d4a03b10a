package render

import (
	"fmt"
	"io"
	"strings"

	"hysteria/game"

	"github.com/muesli/termenv"
)

var (
	cellColors = map[game.CellType]string{
		game.Wall:           "#808080",
		game.Fire:           "#ff4500",
		game.PlayerObstacle: "#d2b48c",
	}
	itemColor  = "#00bfff"
	agentColor = "#7cfc00"
)

// Render draws the world one character per cell followed by one status
// line per agent. The Ascii profile produces plain text.
func Render(w io.Writer, world *game.World, profile termenv.Profile) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d\n", world.Turn())

	occupant := make(map[[2]int]int, world.AgentCount())
	for i := world.AgentCount() - 1; i >= 0; i-- {
		a, _ := world.Agent(i)
		occupant[[2]int{a.X, a.Y}] = i
	}

	for y := 0; y < world.Height(); y++ {
		for x := 0; x < world.Width(); x++ {
			sb.WriteString(cell(world, x, y, occupant, profile))
		}
		sb.WriteByte('\n')
	}

	for i := 0; i < world.AgentCount(); i++ {
		a, _ := world.Agent(i)
		carrying := "nothing"
		if a.HasItem {
			carrying = a.Item.String()
		}
		fmt.Fprintf(&sb, "agent %d at (%d,%d) carrying %s score %d\n", i, a.X, a.Y, carrying, a.Score)
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("failed to render world: %w", err)
	}
	return nil
}

func cell(world *game.World, x, y int, occupant map[[2]int]int, profile termenv.Profile) string {
	if i, ok := occupant[[2]int{x, y}]; ok {
		return profile.String(fmt.Sprintf("%d", i%10)).Foreground(profile.Color(agentColor)).Bold().String()
	}
	c := world.Cell(x, y)
	if item := world.Item(x, y); item != game.None && c == game.Empty {
		return profile.String(string(item.Glyph())).Foreground(profile.Color(itemColor)).String()
	}
	glyph := string(c.Glyph())
	if color, ok := cellColors[c]; ok {
		return profile.String(glyph).Foreground(profile.Color(color)).String()
	}
	return glyph
}

// Plan renders a sequence of planned actions, e.g. "right right use".
func Plan(actions []game.Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return strings.Join(names, " ")
}
