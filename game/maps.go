package game

import (
	"fmt"
	"strings"
)

const (
	cellGlyphs = ".#FO"
	itemGlyphs = ".fhpc"
)

func (c CellType) Glyph() byte {
	if int(c) < len(cellGlyphs) {
		return cellGlyphs[c]
	}
	return '?'
}

func (i ItemType) Glyph() byte {
	if int(i) < len(itemGlyphs) {
		return itemGlyphs[i]
	}
	return '?'
}

func ParseCellGlyph(g byte) (CellType, error) {
	if i := strings.IndexByte(cellGlyphs, g); i >= 0 {
		return CellType(i), nil
	}
	return Empty, fmt.Errorf("unknown cell glyph %q", g)
}

func ParseItemGlyph(g byte) (ItemType, error) {
	if i := strings.IndexByte(itemGlyphs, g); i >= 0 {
		return ItemType(i), nil
	}
	return None, fmt.Errorf("unknown item glyph %q", g)
}

// String draws the terrain row by row, with agents shown by index (mod 10)
// and loose items in place of empty floor.
func (w *World) String() string {
	rows := make([][]byte, w.height)
	for y := range rows {
		rows[y] = make([]byte, w.width)
		for x := range rows[y] {
			g := w.Cell(x, y).Glyph()
			if item := w.Item(x, y); item != None && g == '.' {
				g = item.Glyph()
			}
			rows[y][x] = g
		}
	}
	for i, a := range w.agents {
		rows[a.Y][a.X] = byte('0' + i%10)
	}
	var sb strings.Builder
	for _, row := range rows {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DemoMap is the 16x16 three-agent fire scenario.
func DemoMap() *World {
	w := NewWorld(16, 16, 3)
	for y := 0; y <= 4; y++ {
		w.SetCell(3, y, Wall)
	}
	w.SetCell(2, 4, Wall)
	w.SetCell(0, 4, Wall)
	w.SetCell(1, 4, PlayerObstacle)

	w.SetItem(2, 0, Pickaxe)
	w.SetItem(0, 5, Hose)

	fires := [][2]int{
		{0, 6}, {1, 6}, {2, 6},
		{0, 7}, {1, 7}, {2, 7}, {3, 7},
		{3, 8}, {3, 9}, {3, 10}, {3, 11}, {3, 12},
		{2, 12}, {2, 13}, {2, 14}, {1, 14}, {0, 14},
	}
	for _, f := range fires {
		w.SetCell(f[0], f[1], Fire)
	}

	w.SetAgent(0, Agent{X: 2, Y: 1})
	w.SetAgent(1, Agent{X: 1, Y: 8})
	w.SetAgent(2, Agent{X: 5, Y: 12})
	return w
}

// DebugMap is a single agent holding a pickaxe next to an obstacle.
func DebugMap() *World {
	w := NewWorld(16, 16, 1)
	w.SetCell(3, 3, PlayerObstacle)
	w.SetAgent(0, Agent{X: 2, Y: 3, Item: Pickaxe})
	return w
}
