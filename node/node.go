// Package node implements the coset id allocator: a dense arena of
// integer node ids, an active-set that can be iterated in ascending
// order, and a free list kept as a max-heap, so that a reused id is
// always the largest one currently free.
//
// Node 0 is reserved as the initial (identity) coset and is always
// active once the Manager is constructed. UNDEFINED is the sentinel
// used by callers to mean "no such node" — it is never a valid,
// allocated id.
package node

import (
	"container/heap"
	"sort"
	"sync"
)

// UNDEFINED is the sentinel id distinct from every valid node id.
const UNDEFINED = -1

// Root is the initial (identity) node, always active.
const Root = 0

// Manager owns the set of coset ids: which are active and which are
// free for reuse. Enumeration strategies keep their own cursors and
// advance them through the active set in order with NextActive.
//
// Complexity: Allocate/Deactivate/IsActive are O(log n) worst case
// (free-list heap maintenance); NextActive is amortized O(log n).
type Manager struct {
	mu sync.RWMutex

	capacity int
	active   map[int]bool
	free     freeHeap // max-heap: largest freed id reused first

	// activeOrder is an ascending sorted slice of the active ids,
	// rebuilt lazily (see rebuildOrder) whenever activeDirty is set.
	activeDirty bool
	activeOrder []int
}

// NewManager constructs a Manager with node 0 allocated and active.
func NewManager() *Manager {
	m := &Manager{
		capacity: 1,
		active:   map[int]bool{Root: true},
	}
	m.activeDirty = true
	return m
}

// Capacity returns the current arena size (one past the largest id
// ever allocated).
func (m *Manager) Capacity() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capacity
}

// ActiveCount returns the number of currently active nodes.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// IsActive reports whether id is currently an active node.
func (m *Manager) IsActive(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[id]
}

// Allocate returns the id of a newly activated node: the top of the
// free list if non-empty, otherwise the next sequential id (the current
// capacity), after which capacity grows by exactly one. No storage is
// reserved ahead of use; capacity never doubles.
//
// Complexity: O(log n) amortized.
func (m *Manager) Allocate() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id int
	if m.free.Len() > 0 {
		id = heap.Pop(&m.free).(int)
	} else {
		id = m.capacity
		m.capacity++
	}
	m.active[id] = true
	m.activeDirty = true
	return id
}

// Deactivate returns id to the free list and removes it from the
// active set. Deactivating the root node is a programming fault and
// panics; callers must never deactivate node 0.
//
// Complexity: O(log n).
func (m *Manager) Deactivate(id int) {
	if id == Root {
		panic("node: cannot deactivate the root node")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active[id] {
		return
	}
	delete(m.active, id)
	heap.Push(&m.free, id)
	m.activeDirty = true
}

// rebuildOrder recomputes the ascending snapshot of active ids used by
// NextActive. Callers must hold the write lock (or accept races are
// limited to the cached snapshot, which is read-locked below).
func (m *Manager) rebuildOrder() {
	if !m.activeDirty {
		return
	}
	order := make([]int, 0, len(m.active))
	for id := range m.active {
		order = append(order, id)
	}
	sort.Ints(order)
	m.activeOrder = order
	m.activeDirty = false
}

// NextActive returns the smallest active id strictly greater than
// cursor, or UNDEFINED if none exists. A cursor of UNDEFINED (or
// anything less than 0) finds the smallest active id overall.
//
// Deactivating the node a cursor currently references is legal: the
// next call to NextActive silently advances past it, since the
// deactivated id is no longer in the active-ordered snapshot.
//
// Complexity: O(log n) amortized, O(n) on the first call after any
// mutation (snapshot rebuild).
func (m *Manager) NextActive(cursor int) int {
	m.mu.Lock()
	m.rebuildOrder()
	order := m.activeOrder
	m.mu.Unlock()

	// binary search for first element > cursor
	lo, hi := 0, len(order)
	for lo < hi {
		mid := (lo + hi) / 2
		if order[mid] > cursor {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo == len(order) {
		return UNDEFINED
	}
	return order[lo]
}

// FirstActive is shorthand for NextActive(UNDEFINED).
func (m *Manager) FirstActive() int {
	return m.NextActive(UNDEFINED)
}

// ActiveIDs returns a snapshot of every active id in ascending order.
func (m *Manager) ActiveIDs() []int {
	m.mu.Lock()
	m.rebuildOrder()
	out := make([]int, len(m.activeOrder))
	copy(out, m.activeOrder)
	m.mu.Unlock()
	return out
}

// Relabel replaces the active set with the ids perm maps its keys to
// (a bijection from every currently active id onto a new id set),
// discarding the free list. Used by the standardize package once a
// spanning order has been computed (spec.md §4.9): standardisation
// only ever runs over the live active set, so the free list of
// previously-deactivated ids has nothing left to describe afterward.
func (m *Manager) Relabel(perm map[int]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newActive := make(map[int]bool, len(perm))
	maxID := -1
	for _, v := range perm {
		newActive[v] = true
		if v > maxID {
			maxID = v
		}
	}
	m.active = newActive
	m.capacity = maxID + 1
	m.free = nil
	m.activeDirty = true
}

// freeHeap is a max-heap of free (deactivated) node ids, so that
// Allocate reuses the largest free id first. This matches LIFO order
// only when ids are freed in ascending order.
type freeHeap []int

func (h freeHeap) Len() int            { return len(h) }
func (h freeHeap) Less(i, j int) bool  { return h[i] > h[j] } // max-heap
func (h freeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *freeHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *freeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
