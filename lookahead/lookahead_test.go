package lookahead_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/coset/coincidence"
	"github.com/latticeforge/coset/lookahead"
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/presentation"
	"github.com/latticeforge/coset/wordgraph"
)

// a^2 = e, built with one extra node (1 -a-> 2 instead of closing back
// to 0): an HLT-style lookahead from node 0 must discover and drain
// the forced coincidence without allocating anything.
func TestRunHLTStyleKillsInconsistentExtraNode(t *testing.T) {
	nodes := node.NewManager()
	g := wordgraph.New(1, nodes)
	q := coincidence.New()
	g.SetOnCoincidence(q.Push)

	n1 := g.NewNodeTargeted(node.Root, 0)
	g.NewNodeTargeted(n1, 0) // wrong: should close back to Root

	pres := &presentation.Presentation{
		Alphabet: 1,
		Rules:    []presentation.Rule{{Lhs: presentation.Word{0, 0}, Rhs: presentation.Word{}}},
	}

	res, err := lookahead.Run(context.Background(), g, nodes, q, pres, node.UNDEFINED, lookahead.Options{
		Style:  lookahead.HLT,
		Extent: lookahead.FullExtent,
		Kind:   presentation.TwoSided,
		Tuning: lookahead.Tuning{Next: 10, Min: 1, GrowthFactor: 2, GrowthThreshold: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Killed)
	require.Equal(t, 2, res.Active)
	require.Equal(t, node.Root, g.Target(n1, 0))
}

func TestRunFelschStyleClosesFromEveryActiveNode(t *testing.T) {
	nodes := node.NewManager()
	g := wordgraph.New(1, nodes)
	q := coincidence.New()
	g.SetOnCoincidence(q.Push)

	n1 := g.NewNodeTargeted(node.Root, 0)
	n2 := g.NewNodeTargeted(n1, 0)
	n3 := g.NewNodeTargeted(n2, 0)
	n4 := g.NewNodeTargeted(n3, 0)

	pres := &presentation.Presentation{
		Alphabet: 1,
		Rules:    []presentation.Rule{{Lhs: presentation.Word{0, 0, 0, 0, 0}, Rhs: presentation.Word{}}},
	}

	res, err := lookahead.Run(context.Background(), g, nodes, q, pres, node.UNDEFINED, lookahead.Options{
		Style:  lookahead.Felsch,
		Kind:   presentation.TwoSided,
		Tuning: lookahead.Tuning{Next: 10, Min: 1, GrowthFactor: 2, GrowthThreshold: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.Killed) // the chain closes into a 5-cycle, nothing to collapse
	require.Equal(t, node.Root, g.Target(n4, 0))
}

func TestRunHLTStyleStopsEarlyWhenKillRateLow(t *testing.T) {
	nodes := node.NewManager()
	g := wordgraph.New(1, nodes)
	q := coincidence.New()
	g.SetOnCoincidence(q.Push)

	pres := &presentation.Presentation{Alphabet: 1}

	clock := time.Now()
	advance := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	res, err := lookahead.Run(context.Background(), g, nodes, q, pres, node.UNDEFINED, lookahead.Options{
		Style:  lookahead.HLT,
		Extent: lookahead.FullExtent,
		Kind:   presentation.TwoSided,
		Tuning: lookahead.Tuning{
			Next: 10, Min: 1, GrowthFactor: 2, GrowthThreshold: 2,
			StopEarlyRatio: 0.5, StopEarlyInterval: time.Second,
		},
		Now: advance,
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.Killed)
}

func TestRetuneGrowsWhenActiveExceedsNext(t *testing.T) {
	nodes := node.NewManager()
	g := wordgraph.New(1, nodes)
	q := coincidence.New()
	g.SetOnCoincidence(q.Push)
	pres := &presentation.Presentation{Alphabet: 1}

	for i := 0; i < 5; i++ {
		nodes.Allocate()
	}

	res, err := lookahead.Run(context.Background(), g, nodes, q, pres, node.UNDEFINED, lookahead.Options{
		Style:  lookahead.HLT,
		Extent: lookahead.FullExtent,
		Kind:   presentation.TwoSided,
		Tuning: lookahead.Tuning{Next: 2, Min: 1, GrowthFactor: 2, GrowthThreshold: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 12, res.NextThreshold) // active=6, factor=2 -> 12
}
