package coincidence_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/coset/coincidence"
	"github.com/latticeforge/coset/definition"
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/wordgraph"
)

func setup(alphabet int) (*wordgraph.Graph, *node.Manager, *coincidence.Queue) {
	nodes := node.NewManager()
	g := wordgraph.New(alphabet, nodes)
	q := coincidence.New()
	g.SetOnCoincidence(q.Push)
	return g, nodes, q
}

func TestDrainSimpleUnion(t *testing.T) {
	g, nodes, q := setup(1)
	a := nodes.Allocate()
	b := nodes.Allocate()
	q.Push(a, b)

	require.NoError(t, q.Drain(g, nodes, false, nil))
	require.False(t, nodes.IsActive(b)) // larger id deactivated
	require.True(t, nodes.IsActive(a))
}

func TestDrainMergesEdgesAndCascades(t *testing.T) {
	g, nodes, q := setup(1)
	// node 0 --0--> a ; a has edge 0->x ; unreached node b has edge 0->y
	a := g.NewNodeTargeted(node.Root, 0)
	x := g.NewNodeTargeted(a, 0)
	b := nodes.Allocate()
	y := g.NewNodeTargeted(b, 0)

	q.Push(a, b)
	var registered []definition.Definition
	require.NoError(t, q.Drain(g, nodes, true, func(d definition.Definition) {
		registered = append(registered, d)
	}))

	// a and b merge into min(a,b); x and y must have cascaded into one class.
	winner := q.Representative(a)
	require.Equal(t, winner, q.Representative(b))
	require.Equal(t, q.Representative(x), q.Representative(y))
}

func TestDrainSkipsAlreadyEqualPairs(t *testing.T) {
	g, nodes, q := setup(1)
	a := nodes.Allocate()
	b := nodes.Allocate()
	q.Push(a, b)
	require.NoError(t, q.Drain(g, nodes, false, nil))
	// Pushing the already-resolved pair again should be a no-op drain.
	q.Push(a, b)
	require.NoError(t, q.Drain(g, nodes, false, nil))
}

func TestLargeCollapseBulkRewrite(t *testing.T) {
	g, nodes, q := setup(1)
	q.LargeCollapseThreshold = 1

	a := g.NewNodeTargeted(node.Root, 0)
	b := nodes.Allocate()
	c := nodes.Allocate()
	q.Push(a, b)
	q.Push(a, c)

	require.NoError(t, q.Drain(g, nodes, false, nil))
	require.Equal(t, q.Representative(a), q.Representative(b))
	require.Equal(t, q.Representative(a), q.Representative(c))
}
