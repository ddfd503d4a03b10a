// meta/meta.go
package meta

// GO_ROUTINES defines the number of goroutines each search runs with.
const GO_ROUTINES = 4

// ROLLOUTS defines the rollout budget per agent per turn.
const ROLLOUTS = 1000

// EXPLORATION defines the UCT exploration constant.
const EXPLORATION = 1.4

// WITH_CUTOFF defines the playout depth limit.
const WITH_CUTOFF = 10

// MAX_TURNS bounds a run when no turn count is given.
const MAX_TURNS = 300

// ARENA_MAX_NODES caps the node arena of a single tree.
const ARENA_MAX_NODES = 1 << 22
