// Package hlt implements the HLTEngine of spec.md §4.6: advances a
// run cursor through active nodes, tracing every relation from each
// one and allocating fresh nodes as needed, registering a coincidence
// at each relation's closure.
//
// Grounded on algorithms.BFS's walker decomposition (init/loop/visit/
// enqueueNeighbors): "neighbors" become "relation traces" and
// "enqueue" becomes wordgraph.Graph.NewNodeTargeted.
package hlt

import (
	"context"

	"github.com/latticeforge/coset/coincidence"
	"github.com/latticeforge/coset/definition"
	"github.com/latticeforge/coset/felsch"
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/presentation"
	"github.com/latticeforge/coset/wordgraph"
)

// Options configures an Engine.
type Options struct {
	Kind            presentation.Kind
	GeneratingPairs presentation.GeneratingPairs

	// Save enables the hybrid "HLT + Felsch" mode: after every traced
	// relation, registered-definition processing runs via the felsch
	// package before the cursor continues (spec.md §4.6).
	Save bool

	// Buf is the shared DefinitionBuffer used when Save is enabled.
	// Required (non-nil) iff Save is true.
	Buf *definition.Buffer
}

// Engine drives the run_cursor sweep described in spec.md §4.6.
type Engine struct {
	g     *wordgraph.Graph
	nodes *node.Manager
	q     *coincidence.Queue
	pres  *presentation.Presentation
	opts  Options
}

// New constructs an Engine over the given graph/queue/presentation.
func New(g *wordgraph.Graph, nodes *node.Manager, q *coincidence.Queue, pres *presentation.Presentation, opts Options) *Engine {
	return &Engine{g: g, nodes: nodes, q: q, pres: pres, opts: opts}
}

// TraceAt traces every relevant relation (Rules always, plus
// GeneratingPairs when v is the root or the congruence is two-sided)
// from v once, without advancing any cursor. Used both by the main
// sweep and by the Controller's initial-run seeding policy
// (spec.md §4.8).
func (e *Engine) TraceAt(v int) error {
	e.traceRelations(v, e.pres.Rules)
	if v == node.Root || e.opts.Kind == presentation.TwoSided {
		e.traceRelations(v, e.opts.GeneratingPairs)
	}
	return nil
}

func (e *Engine) traceRelations(v int, rules []presentation.Rule) {
	for _, r := range rules {
		endS := e.traceComplete(v, r.Lhs)
		endT := e.traceComplete(v, r.Rhs)
		if endS != endT {
			e.q.Push(endS, endT)
		}

		if e.opts.Save {
			_ = e.q.Drain(e.g, e.nodes, true, func(d definition.Definition) { e.opts.Buf.Emplace(d) })
			_ = felsch.Drain(e.g, e.nodes, e.q, e.pres, e.opts.Buf, felsch.Options{
				Kind:            e.opts.Kind,
				GeneratingPairs: e.opts.GeneratingPairs,
			})
		} else {
			_ = e.q.Drain(e.g, e.nodes, false, nil)
		}
	}
}

// traceComplete walks w from start, allocating a fresh node for every
// step whose edge is not yet defined, and returns the node reached.
func (e *Engine) traceComplete(start int, w presentation.Word) int {
	cur := start
	for _, letter := range w {
		nxt := e.g.Target(cur, letter)
		if nxt == wordgraph.UNDEFINED {
			nxt = e.g.NewNodeTargeted(cur, letter)
		}
		cur = nxt
	}
	return cur
}

// InterruptCheck reports, given the caller's growth-signal settings,
// whether the Strategy should pause the sweep for a lookahead
// (spec.md §4.6: "if active_count > lookahead_next or the
// DefinitionBuffer skipped entries").
func InterruptCheck(nodes *node.Manager, lookaheadNext int, bufSkipped bool) bool {
	return nodes.ActiveCount() > lookaheadNext || bufSkipped
}

// Run advances cursor through NextActive, calling TraceAt at each
// node, until the active set is exhausted, ctx is cancelled, or
// shouldInterrupt reports true (in which case Run returns the current
// cursor so the Strategy can resume after a lookahead).
//
// Complexity: O(active_count * len(Rules+GeneratingPairs) * relation
// length) for one full sweep, amortized over however many times
// Run is resumed.
func (e *Engine) Run(ctx context.Context, cursor int, shouldInterrupt func() bool) (nextCursor int, exhausted bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return cursor, false, ctx.Err()
		default:
		}

		v := e.nodes.NextActive(cursor)
		if v == node.UNDEFINED {
			return cursor, true, nil
		}
		if err := e.TraceAt(v); err != nil {
			return cursor, false, err
		}
		cursor = v

		if shouldInterrupt != nil && shouldInterrupt() {
			return cursor, false, nil
		}
	}
}
