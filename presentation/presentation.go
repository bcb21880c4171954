// Package presentation defines the immutable input data model consumed
// by the coset enumeration engine: a finite generator alphabet, a
// finite multiset of relations, and the generating pairs of a
// congruence.
//
// This package performs structural validation only (every rule letter
// lies inside the alphabet, rules are normalised). It does not parse
// text; turning a string grammar into a Presentation is the job of an
// external collaborator.
package presentation

import (
	"errors"
	"fmt"
)

// Sentinel errors for structural validation of a Presentation.
var (
	// ErrEmptyAlphabet indicates a non-positive alphabet size.
	ErrEmptyAlphabet = errors.New("presentation: alphabet size must be positive")

	// ErrLetterOutOfRange indicates a rule or generating pair uses a
	// letter outside [0, Alphabet).
	ErrLetterOutOfRange = errors.New("presentation: letter out of range")

	// ErrRuleNotNormalised indicates a rule pair that is not in
	// normalised form (see Presentation.Validate).
	ErrRuleNotNormalised = errors.New("presentation: rule not normalised")
)

// Word is a word over the generator alphabet: a sequence of letters in
// [0, Alphabet).
type Word []int

// Rule is an unordered relation u = v presented as an ordered pair for
// storage; Lhs and Rhs are interchangeable under the congruence.
type Rule struct {
	Lhs Word
	Rhs Word
}

// Kind distinguishes a two-sided congruence (closed under left- and
// right-multiplication; relations apply at every node) from a
// one-sided congruence (generating pairs apply only at the root).
type Kind int

const (
	// TwoSided congruences apply every relation at every node.
	TwoSided Kind = iota
	// OneSided congruences apply generating pairs only at node 0.
	OneSided
)

// String renders the Kind for diagnostics and log fields.
func (k Kind) String() string {
	switch k {
	case TwoSided:
		return "twosided"
	case OneSided:
		return "onesided"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Presentation is the immutable input to a coset enumeration: a finite
// alphabet, a finite ordered multiset of rules, and whether the empty
// word is a distinguished class member.
type Presentation struct {
	// Alphabet is the generator count k; letters range over [0, k).
	Alphabet int

	// Rules is the ordered multiset of relation pairs.
	Rules []Rule

	// ContainsEmptyWord reports whether the empty word is itself an
	// element of the presented structure (a monoid identity), as
	// opposed to a semigroup presentation with no identity.
	ContainsEmptyWord bool
}

// GeneratingPairs is a sequence of word pairs enforced separately from
// Rules: at every node for a two-sided congruence, or only at node 0
// for a one-sided one.
type GeneratingPairs []Rule

// Validate checks every rule letter lies within the alphabet and that
// rules are normalised (a rule with two empty sides is permitted only
// when ContainsEmptyWord; nil and empty words are treated alike). It performs no algorithmic
// work and allocates nothing on the success path.
func (p *Presentation) Validate() error {
	if p.Alphabet <= 0 {
		return ErrEmptyAlphabet
	}
	for i, r := range p.Rules {
		if err := p.validateWord(r.Lhs); err != nil {
			return fmt.Errorf("rule %d lhs: %w", i, err)
		}
		if err := p.validateWord(r.Rhs); err != nil {
			return fmt.Errorf("rule %d rhs: %w", i, err)
		}
		if !p.ContainsEmptyWord && len(r.Lhs) == 0 && len(r.Rhs) == 0 {
			return fmt.Errorf("rule %d: %w", i, ErrRuleNotNormalised)
		}
	}
	return nil
}

func (p *Presentation) validateWord(w Word) error {
	for _, letter := range w {
		if letter < 0 || letter >= p.Alphabet {
			return fmt.Errorf("%w: letter %d not in [0,%d)", ErrLetterOutOfRange, letter, p.Alphabet)
		}
	}
	return nil
}

// Validate checks every pair in gp against the alphabet of p.
func (gp GeneratingPairs) Validate(p *Presentation) error {
	for i, r := range gp {
		if err := p.validateWord(r.Lhs); err != nil {
			return fmt.Errorf("generating pair %d lhs: %w", i, err)
		}
		if err := p.validateWord(r.Rhs); err != nil {
			return fmt.Errorf("generating pair %d rhs: %w", i, err)
		}
	}
	return nil
}

// ObviouslyInfinite reports the presentation-level rank check of
// spec.md §4.10/§4.11: a positive-rank alphabet with no rules and no
// generating pairs cannot be finite-index, because nothing bounds the
// powers of any generator.
func (p *Presentation) ObviouslyInfinite(gp GeneratingPairs) bool {
	return p.Alphabet > 0 && len(p.Rules) == 0 && len(gp) == 0
}
