package searcher

import (
	"sync"
	"sync/atomic"

	"hysteria/meta"
)

const (
	chunkBits = 10
	chunkSize = 1 << chunkBits
	maxChunks = meta.ARENA_MAX_NODES / chunkSize
)

// arena is a slab of fixed-size node chunks addressed by int32 index. Blocks
// are handed out with an atomic bump pointer and never move, so an index
// stays valid until the next reset. A generation of nodes is dropped in bulk.
type arena struct {
	mu     sync.Mutex
	chunks [maxChunks]atomic.Pointer[[chunkSize]node]
	next   atomic.Int32
	limit  int32
}

func newArena(capacity int) *arena {
	if capacity <= 0 || capacity > meta.ARENA_MAX_NODES {
		capacity = meta.ARENA_MAX_NODES
	}
	return &arena{limit: int32(capacity)}
}

// alloc reserves n contiguous nodes and returns the index of the first one.
// It fails once the capacity would be exceeded.
func (a *arena) alloc(n int32) (int32, bool) {
	for {
		first := a.next.Load()
		if first+n > a.limit {
			return -1, false
		}
		if a.next.CompareAndSwap(first, first+n) {
			a.grow(first, first+n-1)
			return first, true
		}
	}
}

func (a *arena) grow(lo, hi int32) {
	for c := lo >> chunkBits; c <= hi>>chunkBits; c++ {
		if a.chunks[c].Load() != nil {
			continue
		}
		a.mu.Lock()
		if a.chunks[c].Load() == nil { // Another expander may have won
			a.chunks[c].Store(new([chunkSize]node))
		}
		a.mu.Unlock()
	}
}

func (a *arena) get(i int32) *node {
	return &a.chunks[i>>chunkBits].Load()[i&(chunkSize-1)]
}

func (a *arena) len() int {
	return int(a.next.Load())
}

func (a *arena) capacity() int {
	return int(a.limit)
}

// reset zeroes the nodes in use and rewinds the bump pointer, keeping the
// chunks for the next generation. Must not race with a search.
func (a *arena) reset() {
	used := a.next.Load()
	for i := int32(0); i < used; i++ {
		a.get(i).reset()
	}
	a.next.Store(0)
}

// release drops every chunk.
func (a *arena) release() {
	for c := range a.chunks {
		a.chunks[c].Store(nil)
	}
	a.next.Store(0)
}
