// Package lookahead implements the Lookahead of spec.md §4.7: a
// bounded verification pass over the active word graph, run either
// HLT-style (no new nodes) or Felsch-style (every active node's edges
// fed through the FelschEngine), with early-stop sampling and adaptive
// retuning of the active-node threshold that triggers the next one.
//
// The HLT-style sweep is grounded on the same cursor-driven walker
// shape as the hlt package's Run, generalized to skip allocation
// entirely (treating an UNDEFINED step as "nothing to check" rather
// than a site to grow the graph).
package lookahead

import (
	"context"
	"time"

	"github.com/latticeforge/coset/coincidence"
	"github.com/latticeforge/coset/definition"
	"github.com/latticeforge/coset/felsch"
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/presentation"
	"github.com/latticeforge/coset/wordgraph"
)

// Style selects the lookahead implementation (spec.md §4.7, §6
// `lookahead_style`).
type Style int

const (
	HLT Style = iota
	Felsch
)

// Extent selects whether the sweep starts from the current cursor
// (Partial) or restarts from node 0 (Full) (spec.md §6
// `lookahead_extent`).
type Extent int

const (
	PartialExtent Extent = iota
	FullExtent
)

// Tuning holds the adaptive-threshold parameters of spec.md §4.7 and
// §6 (`lookahead_next`, `lookahead_min`, `lookahead_growth_factor`,
// `lookahead_growth_threshold`, `lookahead_stop_early_ratio`,
// `lookahead_stop_early_interval`).
type Tuning struct {
	Next              int
	Min               int
	GrowthFactor      float64
	GrowthThreshold   int
	StopEarlyRatio    float64
	StopEarlyInterval time.Duration
}

// Options configures a Run call.
type Options struct {
	Style           Style
	Extent          Extent
	Kind            presentation.Kind
	GeneratingPairs presentation.GeneratingPairs
	Tuning          Tuning

	// Now returns the current wall-clock time, overridable in tests so
	// early-stop sampling is deterministic. Defaults to time.Now if nil.
	Now func() time.Time
}

// Result reports what one lookahead pass observed, for the Strategy to
// fold into its next settings frame.
type Result struct {
	Killed int
	Active int
	// NextThreshold is the retuned lookahead_next per spec.md §4.7's
	// three-branch rule.
	NextThreshold int
}

// Run performs one lookahead pass starting from cursor, returning the
// observed Result. Callers must have wired g's OnCoincidence callback
// to q.Push.
func Run(ctx context.Context, g *wordgraph.Graph, nodes *node.Manager, q *coincidence.Queue, pres *presentation.Presentation, cursor int, opts Options) (Result, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	killedTotal := 0

	switch opts.Style {
	case Felsch:
		killed, err := runFelschStyle(g, nodes, q, pres, opts)
		if err != nil {
			return Result{}, err
		}
		killedTotal = killed
	default:
		killed, err := runHLTStyle(ctx, g, nodes, q, pres, cursor, opts, now)
		if err != nil {
			return Result{}, err
		}
		killedTotal = killed
	}

	active := nodes.ActiveCount()
	next := retune(opts.Tuning, active, killedTotal)
	return Result{Killed: killedTotal, Active: active, NextThreshold: next}, nil
}

func runFelschStyle(g *wordgraph.Graph, nodes *node.Manager, q *coincidence.Queue, pres *presentation.Presentation, opts Options) (int, error) {
	before := nodes.ActiveCount()
	buf := definition.New(definition.Unlimited, 0, nil)
	for _, u := range nodes.ActiveIDs() {
		for gen := 0; gen < g.Alphabet(); gen++ {
			buf.Emplace(definition.Definition{Source: u, Label: gen})
		}
	}
	if err := felsch.Drain(g, nodes, q, pres, buf, felsch.Options{
		Kind:                      opts.Kind,
		GeneratingPairs:           opts.GeneratingPairs,
		AllowPreferredDefinitions: true,
	}); err != nil {
		return 0, err
	}
	return before - nodes.ActiveCount(), nil
}

// runHLTStyle applies every relevant relation at each active node from
// cursor onward without allocating new nodes, sampling nodes_killed at
// opts.Tuning.StopEarlyInterval to decide whether to abort early
// (spec.md §4.7 "early stop").
func runHLTStyle(ctx context.Context, g *wordgraph.Graph, nodes *node.Manager, q *coincidence.Queue, pres *presentation.Presentation, cursor int, opts Options, now func() time.Time) (int, error) {
	start := cursor
	if opts.Extent == FullExtent {
		start = node.UNDEFINED
	}

	before := nodes.ActiveCount()
	lastSample := now()
	killedSinceSample := 0

	c := start
	for {
		select {
		case <-ctx.Done():
			return before - nodes.ActiveCount(), ctx.Err()
		default:
		}

		v := nodes.NextActive(c)
		if v == node.UNDEFINED {
			break
		}
		c = v

		activeBefore := nodes.ActiveCount()
		traceRelationsNoAlloc(g, q, pres.Rules, v)
		if v == node.Root || opts.Kind == presentation.TwoSided {
			traceRelationsNoAlloc(g, q, opts.GeneratingPairs, v)
		}
		if err := q.Drain(g, nodes, false, nil); err != nil {
			return before - nodes.ActiveCount(), err
		}
		killedSinceSample += activeBefore - nodes.ActiveCount()

		if opts.Tuning.StopEarlyInterval > 0 {
			if elapsed := now().Sub(lastSample); elapsed >= opts.Tuning.StopEarlyInterval {
				activeCount := nodes.ActiveCount()
				if float64(killedSinceSample) < opts.Tuning.StopEarlyRatio*float64(activeCount) {
					return before - nodes.ActiveCount(), nil
				}
				lastSample = now()
				killedSinceSample = 0
			}
		}
	}
	return before - nodes.ActiveCount(), nil
}

// traceRelationsNoAlloc traces both sides of every rule from v, using
// only currently-defined edges; an UNDEFINED step aborts that side's
// trace with no coincidence recorded (spec.md §4.7 "treat UNDEFINED
// paths as nothing to check").
func traceRelationsNoAlloc(g *wordgraph.Graph, q *coincidence.Queue, rules []presentation.Rule, v int) {
	for _, r := range rules {
		sOK, sEnd := tracePartialNoAlloc(g, v, r.Lhs)
		tOK, tEnd := tracePartialNoAlloc(g, v, r.Rhs)
		if sOK && tOK && sEnd != tEnd {
			q.Push(sEnd, tEnd)
		}
	}
}

func tracePartialNoAlloc(g *wordgraph.Graph, start int, w presentation.Word) (complete bool, end int) {
	cur := start
	for _, letter := range w {
		nxt := g.Target(cur, letter)
		if nxt == wordgraph.UNDEFINED {
			return false, cur
		}
		cur = nxt
	}
	return true, cur
}

// retune implements spec.md §4.7's three-branch adaptive rule for
// lookahead_next.
func retune(t Tuning, active, killed int) int {
	switch {
	case float64(active)*t.GrowthFactor < float64(t.Next) || active > t.Next:
		n := int(float64(t.GrowthFactor) * float64(active))
		if n < t.Min {
			n = t.Min
		}
		return n
	case t.GrowthThreshold >= 2 && killed < (killed+active)/t.GrowthThreshold:
		return int(float64(t.Next) * t.GrowthFactor)
	default:
		return t.Next
	}
}
