// Package standardize implements the Standardiser of spec.md §4.9:
// relabels the active nodes of a word graph so that iterating
// (π(v), g) in g-major order reveals targets in shortlex or lex order,
// and records the spanning forest discovered along the way.
//
// The shortlex walk is a BFS and the lex walk is a DFS, both
// generalized from algorithms.BFS/algorithms.DFS's neighbor-slice
// iteration to the fixed-alphabet g-major edge order a word graph
// exposes instead of an adjacency list.
package standardize

import (
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/wordgraph"
)

// Order selects the target relabelling order (spec.md §4.9).
type Order int

const (
	None Order = iota
	Shortlex
	Lex
)

// ForestEdge records how v was first discovered: via Parent's Letter
// edge. Root's ForestEdge has Parent == node.UNDEFINED.
type ForestEdge struct {
	Parent int
	Letter int
}

// Standardiser holds the permutation and spanning forest produced by
// the most recent Apply call, plus the order it was computed for so a
// repeated Apply in the same order can be detected as a no-op (spec.md
// §4.9 "standardisation is idempotent").
type Standardiser struct {
	lastOrder Order
	applied   bool

	// perm[original active id] = new label.
	perm map[int]int
	// forest[new label] = how that label's node was first reached.
	forest map[int]ForestEdge
}

// New constructs an empty Standardiser.
func New() *Standardiser {
	return &Standardiser{lastOrder: None}
}

// Forest returns the spanning forest computed by the most recent
// non-trivial Apply, keyed by the post-relabel id.
func (s *Standardiser) Forest() map[int]ForestEdge { return s.forest }

// Permutation returns the most recently applied permutation, keyed by
// the pre-relabel (original) id.
func (s *Standardiser) Permutation() map[int]int { return s.perm }

// Apply relabels g's active nodes per order, mutating g's target table
// via wordgraph.Graph.Permute and the active set via
// node.Manager.Relabel, and returns whether any relabelling
// took place. Calling Apply twice in a row with the same order is a
// no-op and returns false (spec.md §4.9).
func (s *Standardiser) Apply(g *wordgraph.Graph, order Order) bool {
	if order == None {
		return false
	}
	if s.applied && s.lastOrder == order {
		return false
	}

	var perm map[int]int
	var forest map[int]ForestEdge
	switch order {
	case Shortlex:
		perm, forest = walkBFS(g)
	case Lex:
		perm, forest = walkDFS(g)
	}

	g.Permute(perm)
	g.Nodes().Relabel(perm)

	s.perm = perm
	s.forest = forest
	s.lastOrder = order
	s.applied = true
	return true
}

// walkBFS assigns labels in breadth-first visiting order starting from
// the root, scanning each node's outgoing edges in generator-major
// order (spec.md §4.9 shortlex).
func walkBFS(g *wordgraph.Graph) (map[int]int, map[int]ForestEdge) {
	perm := map[int]int{node.Root: 0}
	forest := map[int]ForestEdge{0: {Parent: node.UNDEFINED, Letter: -1}}
	queue := []int{node.Root}
	next := 1

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for gen := 0; gen < g.Alphabet(); gen++ {
			v := g.Target(u, gen)
			if v == wordgraph.UNDEFINED {
				continue
			}
			if _, seen := perm[v]; seen {
				continue
			}
			perm[v] = next
			forest[next] = ForestEdge{Parent: perm[u], Letter: gen}
			next++
			queue = append(queue, v)
		}
	}
	return perm, forest
}

// walkDFS assigns labels in depth-first visiting order starting from
// the root, scanning each node's outgoing edges in generator-major
// order (spec.md §4.9 lex).
func walkDFS(g *wordgraph.Graph) (map[int]int, map[int]ForestEdge) {
	perm := map[int]int{node.Root: 0}
	forest := map[int]ForestEdge{0: {Parent: node.UNDEFINED, Letter: -1}}
	next := 1

	var visit func(u int)
	visit = func(u int) {
		for gen := 0; gen < g.Alphabet(); gen++ {
			v := g.Target(u, gen)
			if v == wordgraph.UNDEFINED {
				continue
			}
			if _, seen := perm[v]; seen {
				continue
			}
			perm[v] = next
			forest[next] = ForestEdge{Parent: perm[u], Letter: gen}
			next++
			visit(v)
		}
	}
	visit(node.Root)
	return perm, forest
}
