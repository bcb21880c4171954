// Package wordgraph implements the partially-defined deterministic word
// graph at the heart of coset enumeration: a function
// (node, generator) -> node ∪ {UNDEFINED} stored as a dense target
// table, plus the reverse adjacency needed to re-point predecessors
// when two nodes are later proved equal.
//
// WordGraph never resolves a coincidence itself — writing an edge
// through Join that would make two targets disagree only records the
// pair via an OnCoincidence callback (SetTarget overwrites without
// checking); the coincidence package performs the actual union-find
// collapse.
package wordgraph

import (
	"sync"

	"github.com/latticeforge/coset/node"
)

// UNDEFINED re-exports node.UNDEFINED for callers that only import
// wordgraph.
const UNDEFINED = node.UNDEFINED

// PredEdge is a predecessor reference: target(Node, Gen) == the node
// this PredEdge is stored under.
type PredEdge struct {
	Node int
	Gen  int
}

// Graph is the partial word graph over a fixed generator alphabet.
//
// Concurrency: a single RWMutex guards the target/reverse tables,
// matching the teacher's single-lock-per-concern style (rather than
// lvlath's split vertex/edge locks, since target writes and reverse
// writes must be atomic together here).
type Graph struct {
	mu sync.RWMutex

	alphabet int
	nodes    *node.Manager

	target  [][]int // target[node][gen]
	reverse [][]PredEdge

	edgeCount int

	onCoincidence func(p, q int)
}

// New constructs a Graph over the given alphabet size, backed by the
// given NodeManager. The manager must already contain an active root.
func New(alphabet int, nodes *node.Manager) *Graph {
	g := &Graph{
		alphabet: alphabet,
		nodes:    nodes,
	}
	g.ensureCapacityLocked(nodes.Capacity())
	return g
}

// Alphabet returns the fixed generator count.
func (g *Graph) Alphabet() int { return g.alphabet }

// SetOnCoincidence installs the callback invoked whenever Merge
// records a coincidence. Only one callback is supported; later calls
// replace the previous one. Must be called before any mutating method
// that might discover a coincidence.
func (g *Graph) SetOnCoincidence(fn func(p, q int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onCoincidence = fn
}

// OnCoincidence returns the currently-installed callback, or nil.
func (g *Graph) OnCoincidence() func(p, q int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.onCoincidence
}

// ensureCapacityLocked grows the target/reverse tables to cover node
// ids up to n-1. Callers must hold g.mu for writing.
func (g *Graph) ensureCapacityLocked(n int) {
	for len(g.target) < n {
		row := make([]int, g.alphabet)
		for i := range row {
			row[i] = node.UNDEFINED
		}
		g.target = append(g.target, row)
		g.reverse = append(g.reverse, nil)
	}
}

// Target returns target(u, gen), or UNDEFINED if unset.
//
// Complexity: O(1).
func (g *Graph) Target(u, gen int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if u >= len(g.target) {
		return node.UNDEFINED
	}
	return g.target[u][gen]
}

// SetTarget writes target(u, gen) = v, updating reverse adjacency.
// It does not check for conflicts with an existing different value;
// callers that need conflict detection should use Join.
//
// Complexity: O(1) amortized; O(capacity) worst case to re-point a
// predecessor entry out of reverse[old].
func (g *Graph) SetTarget(u, gen, v int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setTargetLocked(u, gen, v)
}

func (g *Graph) setTargetLocked(u, gen, v int) {
	g.ensureCapacityLocked(u + 1)
	if v != node.UNDEFINED {
		g.ensureCapacityLocked(v + 1)
	}

	old := g.target[u][gen]
	if old == v {
		return
	}
	if old != node.UNDEFINED {
		g.removePredLocked(old, u, gen)
	} else if v != node.UNDEFINED {
		g.edgeCount++
	}
	g.target[u][gen] = v
	if v != node.UNDEFINED {
		g.reverse[v] = append(g.reverse[v], PredEdge{Node: u, Gen: gen})
	}
}

func (g *Graph) removePredLocked(v, u, gen int) {
	preds := g.reverse[v]
	for i, p := range preds {
		if p.Node == u && p.Gen == gen {
			preds[i] = preds[len(preds)-1]
			g.reverse[v] = preds[:len(preds)-1]
			return
		}
	}
}

// Join writes target(u, gen) = v if currently undefined; if it is
// already defined to a different node, records a coincidence between
// the existing target and v instead of overwriting (spec.md §4.5/§4.6
// "register any forced equality at closure").
//
// Complexity: O(1) amortized.
func (g *Graph) Join(u, gen, v int) {
	cur := g.Target(u, gen)
	switch {
	case cur == node.UNDEFINED:
		g.SetTarget(u, gen, v)
	case cur != v:
		g.Merge(cur, v)
	}
}

// NewNodeTargeted allocates and activates a fresh node v, sets
// target(u, gen) = v, and returns v.
//
// Complexity: O(1) amortized.
func (g *Graph) NewNodeTargeted(u, gen int) int {
	v := g.nodes.Allocate()
	g.mu.Lock()
	g.ensureCapacityLocked(g.nodes.Capacity())
	g.setTargetLocked(u, gen, v)
	g.mu.Unlock()
	return v
}

// Merge invokes the installed OnCoincidence callback with (p, q). It
// performs no graph mutation itself; the coincidence package is
// responsible for the union-find collapse.
func (g *Graph) Merge(p, q int) {
	g.mu.RLock()
	fn := g.onCoincidence
	g.mu.RUnlock()
	if fn != nil {
		fn(p, q)
	}
}

// Predecessors returns every (node, gen) pair with target(node, gen)
// == v. The returned slice must not be retained across further
// mutations of v's predecessor set.
func (g *Graph) Predecessors(v int) []PredEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if v >= len(g.reverse) {
		return nil
	}
	out := make([]PredEdge, len(g.reverse[v]))
	copy(out, g.reverse[v])
	return out
}

// RetargetAll rewrites target(u, gen) = to for every predecessor
// (u, gen) currently pointing at from, then clears from's predecessor
// list. Used by coincidence collapse to re-point the loser's
// predecessors at the winner (spec.md §4.3 step 4).
//
// Complexity: O(deg(from)).
func (g *Graph) RetargetAll(from, to int) {
	preds := g.Predecessors(from)
	for _, p := range preds {
		g.SetTarget(p.Node, p.Gen, to)
	}
}

// RewriteTargets applies remap to every currently-defined target value
// in every row of the table (active or not), then rebuilds reverse adjacency from
// scratch. Used by the coincidence package's bulk "large collapse"
// pass (spec.md §6 `large_collapse`, §9): when many coincidences
// resolve in one drain, a single full rebuild is cheaper than
// re-pointing predecessors one edge at a time.
//
// Complexity: O(capacity * alphabet).
func (g *Graph) RewriteTargets(remap func(v int) int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for u := range g.target {
		row := g.target[u]
		for gen, v := range row {
			if v == node.UNDEFINED {
				continue
			}
			if nv := remap(v); nv != v {
				row[gen] = nv
			}
		}
	}
	for i := range g.reverse {
		g.reverse[i] = nil
	}
	for u, row := range g.target {
		for gen, v := range row {
			if v != node.UNDEFINED {
				g.reverse[v] = append(g.reverse[v], PredEdge{Node: u, Gen: gen})
			}
		}
	}
}

// Permute relabels every node id per perm (old id -> new id),
// rebuilding the target/reverse tables so row nu = perm[u] holds what
// row u held before, with target values relabelled the same way. perm
// must map every row and every target value currently in use; used by
// the standardize package after computing a spanning order (spec.md
// §4.9), where RetargetAll/RewriteTargets's value-only remap is not
// enough because the node identities themselves move.
//
// Complexity: O(capacity * alphabet).
func (g *Graph) Permute(perm map[int]int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	size := 0
	for _, nv := range perm {
		if nv+1 > size {
			size = nv + 1
		}
	}

	newTarget := make([][]int, size)
	for i := range newTarget {
		row := make([]int, g.alphabet)
		for j := range row {
			row[j] = node.UNDEFINED
		}
		newTarget[i] = row
	}
	for u, row := range g.target {
		nu, ok := perm[u]
		if !ok {
			continue
		}
		for gen, v := range row {
			if v == node.UNDEFINED {
				continue
			}
			if nv, ok2 := perm[v]; ok2 {
				newTarget[nu][gen] = nv
			}
		}
	}
	g.target = newTarget

	g.reverse = make([][]PredEdge, size)
	for u, row := range g.target {
		for gen, v := range row {
			if v != node.UNDEFINED {
				g.reverse[v] = append(g.reverse[v], PredEdge{Node: u, Gen: gen})
			}
		}
	}
}

// EdgeCount returns the number of currently-defined (non-UNDEFINED)
// edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgeCount
}

// CompleteRatio returns the fraction of (active node, generator) pairs
// that are currently defined, in [0,1]. Returns 0 if there are no
// active nodes.
func (g *Graph) CompleteRatio() float64 {
	active := g.nodes.ActiveIDs()
	if len(active) == 0 || g.alphabet == 0 {
		return 0
	}
	total := len(active) * g.alphabet
	defined := 0
	g.mu.RLock()
	for _, u := range active {
		if u >= len(g.target) {
			continue
		}
		for _, t := range g.target[u] {
			if t != node.UNDEFINED {
				defined++
			}
		}
	}
	g.mu.RUnlock()
	return float64(defined) / float64(total)
}

// ClosedCount returns the number of currently-active nodes all of
// whose generator edges are defined, i.e. nodes that will never again
// trigger a new definition (spec.md §4.11 "defined nodes").
//
// Complexity: O(active_count * alphabet), same scan shape as
// CompleteRatio.
func (g *Graph) ClosedCount() int {
	active := g.nodes.ActiveIDs()
	g.mu.RLock()
	defer g.mu.RUnlock()
	count := 0
	for _, u := range active {
		if u >= len(g.target) {
			continue
		}
		closed := true
		for _, t := range g.target[u] {
			if t == node.UNDEFINED {
				closed = false
				break
			}
		}
		if closed {
			count++
		}
	}
	return count
}

// ForEachActive calls fn for every currently active node id, in
// ascending order. fn must not mutate the Graph's node set.
func (g *Graph) ForEachActive(fn func(u int)) {
	for _, u := range g.nodes.ActiveIDs() {
		fn(u)
	}
}

// Nodes returns the underlying NodeManager, so engines can allocate,
// deactivate, and iterate active nodes without a separate reference.
func (g *Graph) Nodes() *node.Manager { return g.nodes }
