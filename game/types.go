package game

import "fmt"

// CellType is the terrain layer of a grid cell.
type CellType uint8

const (
	Empty CellType = iota
	Wall
	Fire
	PlayerObstacle
)

var cellNames = [...]string{"empty", "wall", "fire", "obstacle"}

func (c CellType) String() string {
	if int(c) < len(cellNames) {
		return cellNames[c]
	}
	return fmt.Sprintf("cell(%d)", uint8(c))
}

func (c CellType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CellType) UnmarshalText(text []byte) error {
	for i, name := range cellNames {
		if name == string(text) {
			*c = CellType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown cell type %q", text)
}

// ItemType is the item layer of a grid cell, also what an agent carries.
type ItemType uint8

const (
	None ItemType = iota
	Food
	Hose
	Pickaxe
	Coin
)

var itemNames = [...]string{"none", "food", "hose", "pickaxe", "coin"}

func (i ItemType) String() string {
	if int(i) < len(itemNames) {
		return itemNames[i]
	}
	return fmt.Sprintf("item(%d)", uint8(i))
}

func (i ItemType) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ItemType) UnmarshalText(text []byte) error {
	for j, name := range itemNames {
		if name == string(text) {
			*i = ItemType(j)
			return nil
		}
	}
	return fmt.Errorf("unknown item type %q", text)
}

// Action is a single agent decision for one turn.
type Action uint8

const (
	MoveUp Action = iota
	MoveDown
	MoveLeft
	MoveRight
	Pickup
	Drop
	UseItem
	Wait
)

var actionNames = [...]string{"up", "down", "left", "right", "pickup", "drop", "use", "wait"}

// Decisions lists every action the search considers, in enumeration order.
// Wait is the implicit fallback and never enumerated.
var Decisions = [...]Action{MoveUp, MoveDown, MoveLeft, MoveRight, Pickup, Drop, UseItem}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	for i, name := range actionNames {
		if name == string(text) {
			*a = Action(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", text)
}

// delta returns the displacement of a move action.
func (a Action) delta() (dx, dy int, ok bool) {
	switch a {
	case MoveUp:
		return 0, -1, true
	case MoveDown:
		return 0, 1, true
	case MoveLeft:
		return -1, 0, true
	case MoveRight:
		return 1, 0, true
	}
	return 0, 0, false
}

// Agent is the per-agent part of the world state.
type Agent struct {
	X       int      `json:"x"`
	Y       int      `json:"y"`
	HasItem bool     `json:"hasItem"`
	Item    ItemType `json:"item"`
	Score   int      `json:"score"`
	Panic   bool     `json:"panic"` // reserved, no transition rule reads it yet
}

// StateHash identifies a world state.
type StateHash uint64
