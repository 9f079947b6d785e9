// Package guide provides a small stateful cursor over an Index: the object a
// decoding loop actually holds onto, one per in-flight generation.
package guide

import (
	"fmt"

	"github.com/latticeforge/gridlex/pkg/automaton"
	"github.com/latticeforge/gridlex/pkg/index"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

// InvalidTransitionError reports that Advance was asked to accept a token id
// not admissible from the Guide's current state. The Guide's state is left
// unchanged.
type InvalidTransitionError struct {
	State   automaton.StateID
	TokenID vocabulary.TokenID
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("guide: token %d is not admissible from state %d", e.TokenID, e.State)
}

// Guide walks an Index one token at a time. It holds no lock and is not
// safe for concurrent use by multiple goroutines, but many Guides may share
// one Index concurrently since the Index is read-only after construction.
type Guide struct {
	idx   *index.Index
	state automaton.StateID
}

// New returns a Guide positioned at idx's initial state.
func New(idx *index.Index) *Guide {
	return &Guide{idx: idx, state: idx.InitialState()}
}

// At returns a Guide positioned at an arbitrary state of idx, for callers
// restoring a previously persisted cursor rather than starting fresh. The
// caller is responsible for state having actually come from idx.
func At(idx *index.Index, state automaton.StateID) *Guide {
	return &Guide{idx: idx, state: state}
}

// CurrentState returns the Guide's current position in its Index.
func (g *Guide) CurrentState() automaton.StateID {
	return g.state
}

// AllowedTokens returns the tokens admissible from the current state. At the
// terminal state this is the single-element sequence [eos_id], so callers
// can observe completion without a separate IsFinished check mid-loop.
func (g *Guide) AllowedTokens() []vocabulary.TokenID {
	if g.state == index.Terminal {
		return []vocabulary.TokenID{g.idx.EOSTokenID()}
	}
	tokens, ok := g.idx.AllowedTokens(g.state)
	if !ok {
		return nil
	}
	return tokens
}

// Advance accepts tokenID, moving the Guide to the resulting state and
// returning the allowed-tokens set for that new state. If tokenID is not
// admissible from the current state, the Guide's state is left unchanged
// and InvalidTransitionError is returned.
func (g *Guide) Advance(tokenID vocabulary.TokenID) ([]vocabulary.TokenID, error) {
	next, ok := g.idx.NextState(g.state, tokenID)
	if !ok {
		return nil, &InvalidTransitionError{State: g.state, TokenID: tokenID}
	}
	g.state = next
	return g.AllowedTokens(), nil
}

// IsFinished reports whether the Guide has reached its Index's terminal
// state, i.e. a prior Advance consumed the EOS token.
func (g *Guide) IsFinished() bool {
	return g.state == index.Terminal
}

// Equal reports whether two Guides share the same underlying Index (by
// pointer identity) and the same current state.
func (g *Guide) Equal(other *Guide) bool {
	if g == nil || other == nil {
		return g == other
	}
	return g.idx == other.idx && g.state == other.state
}
