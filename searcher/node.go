package searcher

import (
	"math"
	"sync"
	"sync/atomic"

	"hysteria/game"
)

const noParent int32 = -1

// node statistics are updated lock-free; mu only serialises expansion.
// Children occupy the contiguous arena block [first, first+count) and are
// published by storing expanded after they are written.
type node struct {
	mu       sync.Mutex
	expanded atomic.Bool

	action game.Action
	parent int32
	first  int32
	count  int32
	depth  int32

	visits      atomic.Int64
	value       atomic.Uint64 // float64 bits
	virtualLoss atomic.Int64

	pastVisits int64
	pastValue  float64
}

func (n *node) reset() {
	n.expanded.Store(false)
	n.action = game.Wait
	n.parent = noParent
	n.first = 0
	n.count = 0
	n.depth = 0
	n.visits.Store(0)
	n.value.Store(0)
	n.virtualLoss.Store(0)
	n.pastVisits = 0
	n.pastValue = 0
}

// addValue adds v to the accumulated value with a compare-and-swap retry.
func (n *node) addValue(v float64) {
	for {
		old := n.value.Load()
		updated := math.Float64bits(math.Float64frombits(old) + v)
		if n.value.CompareAndSwap(old, updated) {
			return
		}
	}
}

func (n *node) totalValue() float64 {
	return math.Float64frombits(n.value.Load())
}

func (n *node) meanValue() float64 {
	v := n.visits.Load()
	if v == 0 {
		return 0
	}
	return n.totalValue() / float64(v)
}

func (n *node) blendedValue() float64 {
	v := n.visits.Load()
	return blend(v, n.totalValue(), n.pastVisits, n.pastValue)
}
