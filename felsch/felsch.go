// Package felsch implements the FelschEngine of spec.md §4.5: drains a
// definition.Buffer by closing every relation through the node whose
// outgoing edge just changed, merging the two sides' reached targets
// via the coincidence queue.
//
// Grounded on the recursive prefix-walk shape of algorithms.DFS
// (visit-then-recurse-over-defined-steps), reshaped here to walk a
// relation word through the partial word graph instead of walking
// graph neighbors.
//
// Implementation note: rather than maintaining libsemigroups-style per-letter
// occurrence indices so each definition only rescans the relations it
// can affect, this engine rescans every relation from the affected
// node on every popped definition. This is sound (it discovers every
// forced equality an indexed version would) and simpler, at the cost
// of repeated work across Felsch drains — the engine terminates
// because it only rescans when the definition buffer grows.
package felsch

import (
	"github.com/latticeforge/coset/coincidence"
	"github.com/latticeforge/coset/definition"
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/presentation"
	"github.com/latticeforge/coset/wordgraph"
)

// Options configures a Drain call.
type Options struct {
	// Kind selects whether GeneratingPairs apply at every node
	// (TwoSided) or only at the root (OneSided); Rules always apply
	// at every node (spec.md §3 Presentation).
	Kind presentation.Kind

	// GeneratingPairs are enforced alongside Rules per Kind.
	GeneratingPairs presentation.GeneratingPairs

	// AllowPreferredDefinitions permits the engine to greedily define
	// a missing final edge of one side of a relation when the other
	// side is already fully traced, instead of waiting for that edge
	// to be discovered independently (spec.md §4.5 "preferred
	// definitions").
	AllowPreferredDefinitions bool
}

// Drain pops every Definition from buf, closing relations at each
// popped source node, until both buf and q are empty (spec.md §4.5's
// terminal condition) or shouldInterrupt reports true. Newly
// discovered edges (including preferred definitions) are fed back
// into buf so their consequences are checked in turn. A nil
// shouldInterrupt runs to exhaustion; since buf and q are owned by the
// caller, a later Drain call on the same pair simply resumes.
//
// Complexity: O(popped_definitions * len(Rules) * max_rule_length)
// for the rescan, plus whatever coincidence.Drain costs for the
// unions it performs.
func Drain(g *wordgraph.Graph, nodes *node.Manager, q *coincidence.Queue, pres *presentation.Presentation, buf *definition.Buffer, opts Options) error {
	return DrainInterruptible(g, nodes, q, pres, buf, opts, nil)
}

// DrainInterruptible is Drain with an optional shouldInterrupt hook,
// checked after each popped definition is fully processed, used by
// composite strategies to bound a Felsch phase to a definitions budget
// (spec.md §4.8 "+f_defs new nodes").
func DrainInterruptible(g *wordgraph.Graph, nodes *node.Manager, q *coincidence.Queue, pres *presentation.Presentation, buf *definition.Buffer, opts Options, shouldInterrupt func() bool) error {
	for {
		if err := q.Drain(g, nodes, true, func(d definition.Definition) { buf.Emplace(d) }); err != nil {
			return err
		}
		d, ok := buf.Pop()
		if !ok {
			return nil
		}
		u := d.Source
		applyRelationsAt(g, q, buf, pres.Rules, u, opts.AllowPreferredDefinitions)
		if u == node.Root || opts.Kind == presentation.TwoSided {
			applyRelationsAt(g, q, buf, opts.GeneratingPairs, u, opts.AllowPreferredDefinitions)
		}
		if shouldInterrupt != nil && shouldInterrupt() {
			return nil
		}
	}
}

// applyRelationsAt rescans every rule from u, merging complete
// traces and optionally filling in preferred definitions.
func applyRelationsAt(g *wordgraph.Graph, q *coincidence.Queue, buf *definition.Buffer, rules []presentation.Rule, u int, allowPreferred bool) {
	for _, r := range rules {
		posS, endS := tracePartial(g, u, r.Lhs)
		posT, endT := tracePartial(g, u, r.Rhs)
		sComplete := posS == len(r.Lhs)
		tComplete := posT == len(r.Rhs)

		switch {
		case sComplete && tComplete:
			if endS != endT {
				q.Push(endS, endT)
			}
		case sComplete && !tComplete && allowPreferred && posT == len(r.Rhs)-1:
			label := r.Rhs[posT]
			g.SetTarget(endT, label, endS)
			buf.Emplace(definition.Definition{Source: endT, Label: label})
		case tComplete && !sComplete && allowPreferred && posS == len(r.Lhs)-1:
			label := r.Lhs[posS]
			g.SetTarget(endS, label, endT)
			buf.Emplace(definition.Definition{Source: endS, Label: label})
		}
	}
}

// tracePartial walks w from start using only currently defined edges,
// returning how many letters were consumed and the node reached. If
// pos == len(w) the trace is complete.
func tracePartial(g *wordgraph.Graph, start int, w presentation.Word) (pos int, end int) {
	cur := start
	for i, letter := range w {
		nxt := g.Target(cur, letter)
		if nxt == wordgraph.UNDEFINED {
			return i, cur
		}
		cur = nxt
	}
	return len(w), cur
}
