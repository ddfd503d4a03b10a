package communication

import (
	"context"
	"fmt"

	"hysteria/game"
)

// Communicator is an interface that abstracts whether the engine runs in this
// process or behind a server.
type Communicator interface {
	GetGameState(ctx context.Context) (*Snapshot, error)
	Step(ctx context.Context) (*StepResponse, error)
	SetCell(ctx context.Context, x, y int, cell game.CellType) error
	SetItem(ctx context.Context, x, y int, item game.ItemType) error
}

// Snapshot is the observable state of the world after a step.
type Snapshot struct {
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Turn        uint32          `json:"turn"`
	Grid        []string        `json:"grid"`
	Items       []string        `json:"items"`
	Agents      []game.Agent    `json:"agents"`
	LastActions []game.Action   `json:"lastActions"`
	Plans       [][]game.Action `json:"plans"`
	Hash        game.StateHash  `json:"hash"`
}

type Edit struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Value string `json:"value"`
}

type StepResponse struct {
	Turn    uint32        `json:"turn"`
	Actions []game.Action `json:"actions"`
}

type PlanResponse struct {
	Agent  int         `json:"agent"`
	Offset int         `json:"offset"`
	Action game.Action `json:"action"`
}

// NewSnapshot captures w along with the last joint action and the committed
// plans of every agent.
func NewSnapshot(w *game.World, last []game.Action, plans [][]game.Action) *Snapshot {
	snap := &Snapshot{
		Width:       w.Width(),
		Height:      w.Height(),
		Turn:        w.Turn(),
		Agents:      make([]game.Agent, w.AgentCount()),
		LastActions: last,
		Plans:       plans,
		Hash:        w.Hash(),
	}
	for y := 0; y < w.Height(); y++ {
		grid := make([]byte, w.Width())
		items := make([]byte, w.Width())
		for x := range grid {
			grid[x] = w.Cell(x, y).Glyph()
			items[x] = w.Item(x, y).Glyph()
		}
		snap.Grid = append(snap.Grid, string(grid))
		snap.Items = append(snap.Items, string(items))
	}
	for i := range snap.Agents {
		snap.Agents[i], _ = w.Agent(i)
	}
	return snap
}

// World rebuilds the world a snapshot was taken from.
func (s *Snapshot) World() (*game.World, error) {
	if s.Width <= 0 || s.Height <= 0 || len(s.Grid) != s.Height || len(s.Items) != s.Height {
		return nil, fmt.Errorf("malformed snapshot of %dx%d", s.Width, s.Height)
	}
	w := game.NewWorld(s.Width, s.Height, len(s.Agents))
	for y := 0; y < s.Height; y++ {
		if len(s.Grid[y]) != s.Width || len(s.Items[y]) != s.Width {
			return nil, fmt.Errorf("malformed snapshot row %d", y)
		}
		for x := 0; x < s.Width; x++ {
			cell, err := game.ParseCellGlyph(s.Grid[y][x])
			if err != nil {
				return nil, err
			}
			item, err := game.ParseItemGlyph(s.Items[y][x])
			if err != nil {
				return nil, err
			}
			w.SetCell(x, y, cell)
			w.SetItem(x, y, item)
		}
	}
	for i, a := range s.Agents {
		if !w.InBounds(a.X, a.Y) {
			return nil, fmt.Errorf("agent %d at (%d, %d) is off the grid", i, a.X, a.Y)
		}
		w.SetAgent(i, a)
	}
	w.SetTurn(s.Turn)
	return w, nil
}
