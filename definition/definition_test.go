package definition_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/coset/definition"
)

func TestUnlimitedNeverSkips(t *testing.T) {
	b := definition.New(definition.Unlimited, 1, nil)
	require.True(t, b.Emplace(definition.Definition{Source: 0, Label: 0}))
	require.True(t, b.Emplace(definition.Definition{Source: 1, Label: 0}))
	require.Equal(t, 2, b.Len())
	require.False(t, b.AnySkipped())
}

func TestNoStackIfNoSpaceDropsOnFull(t *testing.T) {
	b := definition.New(definition.NoStackIfNoSpace, 1, nil)
	require.True(t, b.Emplace(definition.Definition{Source: 0}))
	require.False(t, b.Emplace(definition.Definition{Source: 1}))
	require.Equal(t, 1, b.Len())
	require.True(t, b.AnySkipped())

	b.ResetSkipped()
	require.False(t, b.AnySkipped())
}

func TestPurgeFromTopEvictsInactiveTail(t *testing.T) {
	active := map[int]bool{0: true, 1: false}
	b := definition.New(definition.PurgeFromTop, 2, func(id int) bool { return active[id] })
	require.True(t, b.Emplace(definition.Definition{Source: 0}))
	require.True(t, b.Emplace(definition.Definition{Source: 1}))
	// Full: source 1 is inactive so it's purged from the tail, freeing a slot.
	require.True(t, b.Emplace(definition.Definition{Source: 0, Label: 7}))
	require.Equal(t, 2, b.Len())
}

func TestPurgeAllEvictsAnyInactive(t *testing.T) {
	active := map[int]bool{0: false, 1: true}
	b := definition.New(definition.PurgeAll, 2, func(id int) bool { return active[id] })
	require.True(t, b.Emplace(definition.Definition{Source: 1}))
	require.True(t, b.Emplace(definition.Definition{Source: 0}))
	require.True(t, b.Emplace(definition.Definition{Source: 1, Label: 9}))
	require.Equal(t, 2, b.Len())
}

func TestDiscardAllIfNoSpaceClears(t *testing.T) {
	b := definition.New(definition.DiscardAllIfNoSpace, 1, nil)
	require.True(t, b.Emplace(definition.Definition{Source: 0}))
	require.True(t, b.Emplace(definition.Definition{Source: 1}))
	require.Equal(t, 1, b.Len())
	d, ok := b.Pop()
	require.True(t, ok)
	require.Equal(t, 1, d.Source)
}

func TestPopEmpty(t *testing.T) {
	b := definition.New(definition.Unlimited, 0, nil)
	_, ok := b.Pop()
	require.False(t, ok)
}
