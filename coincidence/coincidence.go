// Package coincidence implements the CoincidenceQueue of spec.md §4.3:
// an unordered queue of pairs of active nodes declared equal, resolved
// to class representatives with union-find semantics.
//
// The find/union core is adapted directly from prim_kruskal.Kruskal's
// inline disjoint-set (path-halving find, explicit root comparison
// before union), generalized from string vertex ids to integer coset
// ids and specialized so union always keeps the smaller id as root —
// Kruskal's arbitrary union-by-rank does not need that, Todd–Coxeter
// does (spec.md §5 "Coincidence drain always unifies the larger id
// into the smaller").
package coincidence

import (
	"github.com/latticeforge/coset/definition"
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/wordgraph"
)

// Queue is the pending-pair queue plus the running union-find state
// used to resolve pairs to representatives as they drain.
type Queue struct {
	pairs [][2]int

	// parent implements union-find with full path compression over
	// node ids seen so far; absent entries are their own representative.
	parent map[int]int

	// LargeCollapseThreshold: once a single Drain call has performed
	// more than this many unions (counting the current one), RetargetAll
	// is replaced for that union and the rest of that Drain by a
	// deferred bulk rewrite via
	// wordgraph.Graph.RewriteTargets (spec.md §6 large_collapse, §9).
	// Zero disables the bulk path (always re-point immediately).
	LargeCollapseThreshold int

	// killedTotal is the running count of nodes deactivated by every
	// Drain call so far, read by the Reporter's "killed nodes" counter
	// (spec.md §4.11).
	killedTotal int
}

// KilledCount returns the running total of nodes deactivated across
// every Drain call so far.
func (q *Queue) KilledCount() int { return q.killedTotal }

// New constructs an empty Queue.
func New() *Queue {
	return &Queue{parent: make(map[int]int)}
}

// Push enqueues a pair of nodes declared equal.
func (q *Queue) Push(p, r int) {
	if p == r {
		return
	}
	q.pairs = append(q.pairs, [2]int{p, r})
}

// Len returns the number of pairs not yet drained.
func (q *Queue) Len() int { return len(q.pairs) }

// find returns the current representative of x under path
// compression, registering x as its own representative on first
// sight.
func (q *Queue) find(x int) int {
	if _, ok := q.parent[x]; !ok {
		q.parent[x] = x
		return x
	}

	root := x
	for q.parent[root] != root {
		root = q.parent[root]
	}
	for q.parent[x] != root {
		next := q.parent[x]
		q.parent[x] = root
		x = next
	}
	return root
}

// Representative is the public form of find, safe to call between
// drains to resolve an id that may have been unified away.
func (q *Queue) Representative(x int) int { return q.find(x) }

// Drain processes every queued pair (and any further pairs it pushes
// onto q itself when the loser's and winner's targets disagree) until
// the queue is empty. registerDefs selects whether newly-filled
// edges discovered during the collapse are reported via onRegister
// (spec.md §4.3 step 3, §4.5's registration toggle).
//
// Complexity: each drained pair does O(alphabet) work plus O(deg) to
// re-point predecessors (or is covered by the bulk rewrite once
// LargeCollapseThreshold is exceeded); the loop terminates because
// every union strictly decreases ActiveCount.
func (q *Queue) Drain(g *wordgraph.Graph, nodes *node.Manager, registerDefs bool, onRegister func(definition.Definition)) error {
	deactivated := 0
	bulk := false
	redirect := map[int]int{}

	for len(q.pairs) > 0 {
		pair := q.pairs[0]
		q.pairs = q.pairs[1:]

		pRep := q.find(pair[0])
		rRep := q.find(pair[1])
		if pRep == rRep {
			continue
		}

		w, l := pRep, rRep
		if l < w {
			w, l = l, w
		}
		q.parent[l] = w

		for gen := 0; gen < g.Alphabet(); gen++ {
			lt := g.Target(l, gen)
			if lt == wordgraph.UNDEFINED {
				continue
			}
			wt := g.Target(w, gen)
			if wt == wordgraph.UNDEFINED {
				g.SetTarget(w, gen, lt)
				if registerDefs && onRegister != nil {
					onRegister(definition.Definition{Source: w, Label: gen})
				}
			} else if wt != lt {
				q.Push(wt, lt)
			}
		}

		if q.LargeCollapseThreshold > 0 {
			deactivated++
			if deactivated > q.LargeCollapseThreshold {
				bulk = true
			}
		}
		if bulk {
			redirect[l] = w
		} else {
			g.RetargetAll(l, w)
		}

		if nodes.IsActive(l) {
			nodes.Deactivate(l)
			q.killedTotal++
		}
	}

	if bulk && len(redirect) > 0 {
		g.RewriteTargets(func(v int) int {
			for {
				to, ok := redirect[v]
				if !ok {
					return v
				}
				v = to
			}
		})
	}

	return nil
}
