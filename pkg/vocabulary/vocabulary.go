// Package vocabulary provides the immutable-by-contract bidirectional mapping
// between tokenizer byte strings and token ids that the Index is built against.
package vocabulary

import (
	"errors"
	"fmt"
	"sort"
)

// TokenID is a vocabulary token identifier. It fits in 32 bits in practice but is
// carried as an int64 so callers with larger tokenizer id spaces are not truncated.
type TokenID int64

// ErrEOSTokenClash is returned when an operation would place the EOS token id into
// the token map, or when constructing a Vocabulary whose map already contains it.
var ErrEOSTokenClash = errors.New("vocabulary: eos token id present in token map")

// Vocabulary is a bidirectional map between token byte strings and one or more
// token ids, plus a distinguished EOS id. A token string may map to several ids
// (tokenizers sometimes assign duplicate ids to the same bytes).
//
// Token bytes are not required to be valid UTF-8: tokenizers routinely emit
// arbitrary byte sequences, and the Index treats them as opaque byte strings.
type Vocabulary struct {
	eosTokenID TokenID
	tokens     map[string][]TokenID
}

// New builds a Vocabulary from an eos id and a token-bytes -> ids map. It fails
// with ErrEOSTokenClash if eosID appears anywhere in tokens.
func New(eosID TokenID, tokens map[string][]TokenID) (*Vocabulary, error) {
	v := &Vocabulary{
		eosTokenID: eosID,
		tokens:     make(map[string][]TokenID, len(tokens)),
	}
	for tok, ids := range tokens {
		cp := make([]TokenID, len(ids))
		copy(cp, ids)
		for _, id := range cp {
			if id == eosID {
				return nil, fmt.Errorf("vocabulary.New: token %q: %w", tok, ErrEOSTokenClash)
			}
		}
		v.tokens[tok] = cp
	}
	return v, nil
}

// EOSTokenID returns the vocabulary's end-of-sentence token id.
func (v *Vocabulary) EOSTokenID() TokenID {
	return v.eosTokenID
}

// Insert appends tokenID to the id list for token, preserving insertion order.
// It fails with ErrEOSTokenClash if tokenID equals the vocabulary's eos id.
func (v *Vocabulary) Insert(token string, tokenID TokenID) error {
	if tokenID == v.eosTokenID {
		return fmt.Errorf("vocabulary.Insert: token %q: %w", token, ErrEOSTokenClash)
	}
	v.tokens[token] = append(v.tokens[token], tokenID)
	return nil
}

// Remove deletes all ids recorded for token. It is a no-op if token is absent.
func (v *Vocabulary) Remove(token string) {
	delete(v.tokens, token)
}

// Get returns the ids recorded for token and whether any were found.
func (v *Vocabulary) Get(token string) ([]TokenID, bool) {
	ids, ok := v.tokens[token]
	if !ok {
		return nil, false
	}
	cp := make([]TokenID, len(ids))
	copy(cp, ids)
	return cp, true
}

// Len returns the number of distinct non-EOS token strings in the vocabulary.
func (v *Vocabulary) Len() int {
	return len(v.tokens)
}

// Snapshot returns a deep, independent copy of the vocabulary's current contents,
// keyed by token bytes. Index construction calls this once and never re-reads the
// Vocabulary afterwards, so later mutation of v has no effect on an already-built
// Index.
func (v *Vocabulary) Snapshot() map[string][]TokenID {
	out := make(map[string][]TokenID, len(v.tokens))
	for tok, ids := range v.tokens {
		cp := make([]TokenID, len(ids))
		copy(cp, ids)
		out[tok] = cp
	}
	return out
}

// Equal reports whether two vocabularies are structurally identical: same eos id
// and the same token -> ids mapping (order within a token's id list matters).
func (v *Vocabulary) Equal(other *Vocabulary) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.eosTokenID != other.eosTokenID || len(v.tokens) != len(other.tokens) {
		return false
	}
	for tok, ids := range v.tokens {
		oids, ok := other.tokens[tok]
		if !ok || len(ids) != len(oids) {
			return false
		}
		for i := range ids {
			if ids[i] != oids[i] {
				return false
			}
		}
	}
	return true
}

// Tokens returns the vocabulary's token strings in sorted order, useful for
// deterministic iteration in tests and diagnostics.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, 0, len(v.tokens))
	for tok := range v.tokens {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
