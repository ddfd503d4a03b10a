package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"hysteria/engine"
	"hysteria/game"
	"hysteria/meta"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.schema.json
var schemaSource string

var schema = jsonschema.MustCompileString("scenario.schema.json", schemaSource)

// Scenario describes a starting world and the planner that plays it.
type Scenario struct {
	Name    string   `yaml:"name,omitempty"`
	Layout  []string `yaml:"layout"`
	Items   []string `yaml:"items,omitempty"`
	Agents  []Agent  `yaml:"agents"`
	Planner Planner  `yaml:"planner,omitempty"`
}

type Agent struct {
	X     int           `yaml:"x"`
	Y     int           `yaml:"y"`
	Item  game.ItemType `yaml:"item,omitempty"`
	Score int           `yaml:"score,omitempty"`
}

type Planner struct {
	Rollouts      int     `yaml:"rollouts,omitempty"`
	Goroutines    int     `yaml:"goroutines,omitempty"`
	Exploration   float64 `yaml:"exploration,omitempty"`
	Cutoff        int     `yaml:"cutoff,omitempty"`
	Seed          uint64  `yaml:"seed,omitempty"`
	WarmStart     bool    `yaml:"warm_start,omitempty"`
	MaxTurns      int     `yaml:"max_turns,omitempty"`
	ArenaCapacity int     `yaml:"arena_capacity,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML scenario, checks it against the schema and then
// against the grid it describes.
func Parse(raw []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := s.check(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func (s *Scenario) check() error {
	width := len(s.Layout[0])
	for y, row := range s.Layout {
		if len(row) != width {
			return fmt.Errorf("layout row %d has %d cells, want %d", y, len(row), width)
		}
	}
	if len(s.Items) > 0 {
		if len(s.Items) != len(s.Layout) {
			return fmt.Errorf("items have %d rows, want %d", len(s.Items), len(s.Layout))
		}
		for y, row := range s.Items {
			if len(row) != width {
				return fmt.Errorf("items row %d has %d cells, want %d", y, len(row), width)
			}
		}
	}
	for i, a := range s.Agents {
		if a.X >= width || a.Y >= len(s.Layout) {
			return fmt.Errorf("agent %d at (%d, %d) is outside the %dx%d grid", i, a.X, a.Y, width, len(s.Layout))
		}
	}
	return nil
}

// World builds the initial world of the scenario.
func (s *Scenario) World() (*game.World, error) {
	if len(s.Layout) == 0 {
		return nil, fmt.Errorf("scenario has no layout")
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	w := game.NewWorld(len(s.Layout[0]), len(s.Layout), len(s.Agents))
	for y, row := range s.Layout {
		for x := 0; x < len(row); x++ {
			cell, err := game.ParseCellGlyph(row[x])
			if err != nil {
				return nil, fmt.Errorf("layout (%d, %d): %w", x, y, err)
			}
			w.SetCell(x, y, cell)
		}
	}
	for y, row := range s.Items {
		for x := 0; x < len(row); x++ {
			item, err := game.ParseItemGlyph(row[x])
			if err != nil {
				return nil, fmt.Errorf("items (%d, %d): %w", x, y, err)
			}
			w.SetItem(x, y, item)
		}
	}
	for i, a := range s.Agents {
		w.SetAgent(i, game.Agent{X: a.X, Y: a.Y, Item: a.Item, Score: a.Score})
	}
	return w, nil
}

// EngineConfig is the orchestrator configuration of the planner block.
func (s *Scenario) EngineConfig() engine.Config {
	return engine.Config{
		Rollouts:      s.Planner.Rollouts,
		Goroutines:    s.Planner.Goroutines,
		Exploration:   s.Planner.Exploration,
		Cutoff:        s.Planner.Cutoff,
		Seed:          s.Planner.Seed,
		WarmStart:     s.Planner.WarmStart,
		ArenaCapacity: s.Planner.ArenaCapacity,
	}
}

// Turns is the configured run length.
func (s *Scenario) Turns() int {
	if s.Planner.MaxTurns > 0 {
		return s.Planner.MaxTurns
	}
	return meta.MAX_TURNS
}

// FromWorld describes an existing world as a scenario with default planner
// settings.
func FromWorld(name string, w *game.World) *Scenario {
	s := &Scenario{
		Name: name,
		Planner: Planner{
			Rollouts:    meta.ROLLOUTS,
			Goroutines:  meta.GO_ROUTINES,
			Exploration: meta.EXPLORATION,
			Cutoff:      meta.WITH_CUTOFF,
			MaxTurns:    meta.MAX_TURNS,
		},
	}
	hasItems := false
	for y := 0; y < w.Height(); y++ {
		var cells, items strings.Builder
		for x := 0; x < w.Width(); x++ {
			cells.WriteByte(w.Cell(x, y).Glyph())
			item := w.Item(x, y)
			items.WriteByte(item.Glyph())
			hasItems = hasItems || item != game.None
		}
		s.Layout = append(s.Layout, cells.String())
		s.Items = append(s.Items, items.String())
	}
	if !hasItems {
		s.Items = nil
	}
	for i := 0; i < w.AgentCount(); i++ {
		a, _ := w.Agent(i)
		s.Agents = append(s.Agents, Agent{X: a.X, Y: a.Y, Item: a.Item, Score: a.Score})
	}
	return s
}

// Default is the built-in three-agent demo.
func Default() *Scenario {
	return FromWorld("demo", game.DemoMap())
}

// Marshal encodes the scenario as YAML.
func (s *Scenario) Marshal() ([]byte, error) {
	raw, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scenario: %w", err)
	}
	return raw, nil
}
