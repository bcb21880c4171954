package congruence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/coset/congruence"
	"github.com/latticeforge/coset/presentation"
	"github.com/latticeforge/coset/report"
	"github.com/latticeforge/coset/standardize"
)

func cyclicOrderFive() *presentation.Presentation {
	return &presentation.Presentation{
		Alphabet:          1,
		Rules:             []presentation.Rule{{Lhs: presentation.Word{0, 0, 0, 0, 0}, Rhs: presentation.Word{}}},
		ContainsEmptyWord: true,
	}
}

func TestRunEnumeratesCyclicGroupOfOrderFive(t *testing.T) {
	c, err := congruence.New(presentation.TwoSided, cyclicOrderFive(), nil)
	require.NoError(t, err)

	finished, err := c.Run(context.Background())
	require.NoError(t, err)
	require.True(t, finished)
	require.Equal(t, 5, c.NumberOfClasses())
}

func TestWordToClassAndNormalForm(t *testing.T) {
	c, err := congruence.New(presentation.TwoSided, cyclicOrderFive(), nil)
	require.NoError(t, err)
	_, err = c.Run(context.Background())
	require.NoError(t, err)

	require.True(t, c.Standardise(standardize.Shortlex))

	class, err := c.WordToClass(presentation.Word{0, 0})
	require.NoError(t, err)

	// the standardised class id for "aa" must itself be reachable and
	// must normal-form back to a word of a's tracing to the same class.
	nf, err := c.ClassToNormalForm(class)
	require.NoError(t, err)
	cls2, err := c.WordToClass(nf)
	require.NoError(t, err)
	require.Equal(t, class, cls2)
}

func TestWordToClassErrorsOnUndefinedPath(t *testing.T) {
	c, err := congruence.New(presentation.TwoSided, cyclicOrderFive(), nil)
	require.NoError(t, err)

	_, err = c.WordToClass(presentation.Word{0})
	require.Error(t, err) // nothing traced yet, graph only has the root
}

func TestRunForTimeoutReturnsCleanResultNotError(t *testing.T) {
	// RunFor must return (false, nil) when its context ends, never the
	// raw context error (spec.md §7, §8.5). Pre-cancelling the parent
	// context ends the run deterministically (the error seen inside is
	// context.Canceled, handled on the same path as DeadlineExceeded)
	// instead of racing a real wall clock against however fast
	// enumeration happens to run.
	c, err := congruence.New(presentation.TwoSided, cyclicOrderFive(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	finished, err := c.RunFor(ctx, time.Hour)
	require.NoError(t, err)
	require.False(t, finished)
}

func TestRunResumesAfterTimeoutWithReportingEnabled(t *testing.T) {
	// A second Run on the same Controller after a cancelled first Run
	// must not panic on a stale Reporter tick goroutine.
	c, err := congruence.New(presentation.TwoSided, cyclicOrderFive(), nil,
		congruence.WithReporting(report.NoopSink{}, time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	finished, err := c.RunFor(ctx, time.Hour)
	require.NoError(t, err)
	require.False(t, finished)

	finished, err = c.RunFor(context.Background(), time.Hour)
	require.NoError(t, err)
	require.True(t, finished)
}

func TestRunObviouslyInfiniteWithoutDeadlineFails(t *testing.T) {
	pres := &presentation.Presentation{Alphabet: 1}
	c, err := congruence.New(presentation.TwoSided, pres, nil)
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	require.Error(t, err)
	var cerr *congruence.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, congruence.WouldNotTerminate, cerr.Kind)
}

func TestNewRejectsInvalidPresentation(t *testing.T) {
	pres := &presentation.Presentation{Alphabet: 0}
	_, err := congruence.New(presentation.TwoSided, pres, nil)
	require.Error(t, err)
	var cerr *congruence.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, congruence.InvalidInput, cerr.Kind)
}

func TestSetOptionFailsAfterRunStarted(t *testing.T) {
	c, err := congruence.New(presentation.TwoSided, cyclicOrderFive(), nil)
	require.NoError(t, err)
	_, err = c.Run(context.Background())
	require.NoError(t, err)

	err = c.SetOption(congruence.WithSave(true))
	require.Error(t, err)
	var cerr *congruence.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, congruence.NotReconfigurable, cerr.Kind)
}

func TestCloneOneSidedToTwoSidedIsIncompatible(t *testing.T) {
	c, err := congruence.New(presentation.OneSided, cyclicOrderFive(), nil)
	require.NoError(t, err)

	_, err = c.CloneAs(presentation.TwoSided)
	require.Error(t, err)
	var cerr *congruence.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, congruence.IncompatibleKind, cerr.Kind)
}
