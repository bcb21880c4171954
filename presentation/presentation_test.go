package presentation_test

import (
	"errors"
	"testing"

	"github.com/latticeforge/coset/presentation"
	"github.com/stretchr/testify/require"
)

func TestValidate_EmptyAlphabet(t *testing.T) {
	p := &presentation.Presentation{Alphabet: 0}
	require.ErrorIs(t, p.Validate(), presentation.ErrEmptyAlphabet)
}

func TestValidate_LetterOutOfRange(t *testing.T) {
	p := &presentation.Presentation{
		Alphabet: 2,
		Rules:    []presentation.Rule{{Lhs: presentation.Word{0, 1}, Rhs: presentation.Word{2}}},
	}
	err := p.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, presentation.ErrLetterOutOfRange))
}

func TestValidate_OK(t *testing.T) {
	p := &presentation.Presentation{
		Alphabet: 1,
		Rules:    []presentation.Rule{{Lhs: presentation.Word{0, 0, 0, 0, 0}, Rhs: presentation.Word{}}},
	}
	require.NoError(t, p.Validate())
}

func TestValidate_BothSidesEmptyRequiresContainsEmptyWord(t *testing.T) {
	p := &presentation.Presentation{
		Alphabet: 1,
		Rules:    []presentation.Rule{{Lhs: presentation.Word{}, Rhs: presentation.Word{}}},
	}
	require.ErrorIs(t, p.Validate(), presentation.ErrRuleNotNormalised)

	p.ContainsEmptyWord = true
	require.NoError(t, p.Validate())
}

func TestObviouslyInfinite(t *testing.T) {
	p := &presentation.Presentation{Alphabet: 1}
	require.True(t, p.ObviouslyInfinite(nil))

	p.Rules = []presentation.Rule{{Lhs: presentation.Word{0}, Rhs: presentation.Word{}}}
	require.False(t, p.ObviouslyInfinite(nil))

	p.Rules = nil
	gp := presentation.GeneratingPairs{{Lhs: presentation.Word{0}, Rhs: presentation.Word{}}}
	require.False(t, p.ObviouslyInfinite(gp))
}

func TestGeneratingPairsValidate(t *testing.T) {
	p := &presentation.Presentation{Alphabet: 2}
	gp := presentation.GeneratingPairs{{Lhs: presentation.Word{0, 1}, Rhs: presentation.Word{5}}}
	require.ErrorIs(t, gp.Validate(p), presentation.ErrLetterOutOfRange)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "twosided", presentation.TwoSided.String())
	require.Equal(t, "onesided", presentation.OneSided.String())
}
