// Package index builds and serves the token-aware transition table that
// drives grammar-constrained decoding: given a completed DFA and a
// Vocabulary, it computes, for every DFA state reachable by walking whole
// vocabulary tokens, which tokens are admissible and what state each leads
// to.
package index

import (
	"sort"
	"sync"

	"github.com/latticeforge/gridlex/pkg/automaton"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

// Terminal is a sentinel StateID assigned to every accepting state's EOS
// transition target. It never collides with a real automaton.StateID because
// those are always >= 0 and Terminal is negative.
const Terminal automaton.StateID = -1

// Options configures a single Build call.
type Options struct {
	// Parallel processes the frontier with a worker pool instead of a single
	// goroutine. Results are identical to the sequential path either way.
	Parallel bool
	// Workers bounds the worker pool size when Parallel is true. Zero or a
	// negative value means 4 workers.
	Workers int
	// MaxVisitedStates aborts construction with EmptyIndexError once the
	// visited set would exceed it. Zero means unbounded.
	MaxVisitedStates int
	// Cancel, if non-nil, is polled at each frontier-pop boundary; a closed
	// channel aborts construction with CancelledError.
	Cancel <-chan struct{}
}

// Index is the immutable, deep-copy-free result of Build: a per-state map of
// admissible tokens to the state each leads to, plus the set of accepting
// states. Once built it shares no mutable state with its inputs and is safe
// for concurrent read access from many Guides.
type Index struct {
	transitions map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID
	finalStates []automaton.StateID
	initial     automaton.StateID
	eosID       vocabulary.TokenID
}

type tokenEntry struct {
	bytes []byte
	id    vocabulary.TokenID
}

// Build walks dfa from its initial state, lifting byte-level transitions to
// whole-token transitions for every token in vocab, until no new state is
// discovered.
func Build(dfa *automaton.DFA, vocab *vocabulary.Vocabulary, opts Options) (*Index, error) {
	table := tokenTable(vocab)
	eosID := vocab.EOSTokenID()

	var (
		transitions map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID
		err         error
	)
	if opts.Parallel {
		transitions, err = buildParallel(dfa, table, opts)
	} else {
		transitions, err = buildSequential(dfa, table, opts)
	}
	if err != nil {
		return nil, err
	}

	finals := make([]automaton.StateID, 0)
	for s, row := range transitions {
		if !dfa.IsMatch(s) {
			continue
		}
		finals = append(finals, s)
		row[eosID] = Terminal
	}
	sort.Slice(finals, func(i, j int) bool { return finals[i] < finals[j] })

	start := dfa.Start()
	if len(transitions[start]) == 0 {
		return nil, &EmptyIndexError{}
	}

	return &Index{
		transitions: transitions,
		finalStates: finals,
		initial:     start,
		eosID:       eosID,
	}, nil
}

// tokenTable precomputes the (bytes, id) pairs the BFS walks for every
// frontier state, excluding the EOS id (EOS is never a walkable token; it is
// only ever admitted from an already-accepting state).
func tokenTable(vocab *vocabulary.Vocabulary) []tokenEntry {
	snap := vocab.Snapshot()
	eos := vocab.EOSTokenID()
	table := make([]tokenEntry, 0, len(snap))
	for tok, ids := range snap {
		b := []byte(tok)
		for _, id := range ids {
			if id == eos {
				continue
			}
			table = append(table, tokenEntry{bytes: b, id: id})
		}
	}
	sort.Slice(table, func(i, j int) bool {
		if string(table[i].bytes) != string(table[j].bytes) {
			return string(table[i].bytes) < string(table[j].bytes)
		}
		return table[i].id < table[j].id
	})
	return table
}

// walkToken walks b's bytes through dfa from s, returning the destination
// state and whether the walk stayed off the dead state the whole way
// (including the final byte).
func walkToken(dfa *automaton.DFA, s automaton.StateID, b []byte) (automaton.StateID, bool) {
	cur := s
	for _, by := range b {
		cur = dfa.Delta(cur, by)
		if cur == automaton.DeadState {
			return automaton.DeadState, false
		}
	}
	return cur, true
}

func cancelled(cancel <-chan struct{}) bool {
	if cancel == nil {
		return false
	}
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}

// buildSequential runs the single-goroutine BFS exactly as described: a
// FIFO frontier, a visited set, and one row of the transition table written
// per newly-discovered state.
func buildSequential(dfa *automaton.DFA, table []tokenEntry, opts Options) (map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID, error) {
	visited := map[automaton.StateID]bool{}
	transitions := map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID{}
	frontier := []automaton.StateID{dfa.Start()}

	for len(frontier) > 0 {
		if cancelled(opts.Cancel) {
			return nil, &CancelledError{}
		}
		s := frontier[0]
		frontier = frontier[1:]
		if visited[s] {
			continue
		}
		visited[s] = true
		if opts.MaxVisitedStates > 0 && len(visited) > opts.MaxVisitedStates {
			return nil, &EmptyIndexError{}
		}

		row := map[vocabulary.TokenID]automaton.StateID{}
		for _, te := range table {
			dst, ok := walkToken(dfa, s, te.bytes)
			if !ok {
				continue
			}
			row[te.id] = dst
			if !visited[dst] {
				frontier = append(frontier, dst)
			}
		}
		// EOS transitions are attached once, after the full BFS completes and
		// every accepting state is known; see Build.
		transitions[s] = row
	}
	return transitions, nil
}

// buildParallel mirrors buildSequential's semantics but processes each BFS
// level's frontier states across a worker pool: a shared, mutex-guarded
// visited set prevents duplicate work, and each worker owns the row for the
// single state it claims, so no two goroutines ever write the same map key.
func buildParallel(dfa *automaton.DFA, table []tokenEntry, opts Options) (map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	var mu sync.Mutex
	visited := map[automaton.StateID]bool{}
	transitions := map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID{}
	level := []automaton.StateID{dfa.Start()}

	for len(level) > 0 {
		if cancelled(opts.Cancel) {
			return nil, &CancelledError{}
		}

		// Claim this level's unvisited states before fanning out, so every
		// worker's row write target is unique.
		mu.Lock()
		claimed := make([]automaton.StateID, 0, len(level))
		for _, s := range level {
			if visited[s] {
				continue
			}
			visited[s] = true
			claimed = append(claimed, s)
		}
		tooMany := opts.MaxVisitedStates > 0 && len(visited) > opts.MaxVisitedStates
		mu.Unlock()
		if tooMany {
			return nil, &EmptyIndexError{}
		}
		if len(claimed) == 0 {
			break
		}

		rows := make([]map[vocabulary.TokenID]automaton.StateID, len(claimed))
		discovered := make([][]automaton.StateID, len(claimed))

		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					s := claimed[i]
					row := map[vocabulary.TokenID]automaton.StateID{}
					var found []automaton.StateID
					for _, te := range table {
						dst, ok := walkToken(dfa, s, te.bytes)
						if !ok {
							continue
						}
						row[te.id] = dst
						found = append(found, dst)
					}
					rows[i] = row
					discovered[i] = found
				}
			}()
		}
		for i := range claimed {
			jobs <- i
		}
		close(jobs)
		wg.Wait()

		var next []automaton.StateID
		mu.Lock()
		for i, s := range claimed {
			transitions[s] = rows[i]
			for _, d := range discovered[i] {
				if !visited[d] {
					next = append(next, d)
				}
			}
		}
		mu.Unlock()
		level = next
	}
	return transitions, nil
}

// AllowedTokens returns the ordered (ascending token id) list of tokens
// admissible from state, and false if state is unknown to the Index.
// Terminal has no outgoing tokens.
func (idx *Index) AllowedTokens(state automaton.StateID) ([]vocabulary.TokenID, bool) {
	if state == Terminal {
		return nil, true
	}
	row, ok := idx.transitions[state]
	if !ok {
		return nil, false
	}
	ids := make([]vocabulary.TokenID, 0, len(row))
	for id := range row {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, true
}

// NextState looks up the state reached from state on tokenID; ok is false if
// the transition is not admissible.
func (idx *Index) NextState(state automaton.StateID, tokenID vocabulary.TokenID) (automaton.StateID, bool) {
	row, ok := idx.transitions[state]
	if !ok {
		return 0, false
	}
	dst, ok := row[tokenID]
	return dst, ok
}

// IsFinalState reports whether state is an accepting DFA state reachable by
// the construction, or the Terminal sentinel.
func (idx *Index) IsFinalState(state automaton.StateID) bool {
	if state == Terminal {
		return true
	}
	for _, s := range idx.finalStates {
		if s == state {
			return true
		}
	}
	return false
}

// FinalStates returns the accepting states discovered during construction,
// in ascending order. Terminal is not included; it is not a DFA state.
func (idx *Index) FinalStates() []automaton.StateID {
	out := make([]automaton.StateID, len(idx.finalStates))
	copy(out, idx.finalStates)
	return out
}

// TransitionsView returns a read-only-by-convention copy of the full
// transition table, for inspection and testing.
func (idx *Index) TransitionsView() map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID {
	out := make(map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID, len(idx.transitions))
	for s, row := range idx.transitions {
		cp := make(map[vocabulary.TokenID]automaton.StateID, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[s] = cp
	}
	return out
}

// InitialState returns the state a new Guide over this Index starts in.
func (idx *Index) InitialState() automaton.StateID {
	return idx.initial
}

// VisitedStates returns the number of distinct states discovered during
// construction, for logging and diagnostics.
func (idx *Index) VisitedStates() int {
	return len(idx.transitions)
}

// Encoded is the serializable form of an Index, used by persistence
// backends (see internal/indexstore) that cache a built Index keyed by the
// content hash of its (regex, vocabulary) inputs. Index itself has no notion
// of a wire format; Encoded is the one explicit boundary where it gets one.
type Encoded struct {
	Transitions map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID `json:"transitions"`
	FinalStates []automaton.StateID                                            `json:"final_states"`
	Initial     automaton.StateID                                              `json:"initial"`
	EOSTokenID  vocabulary.TokenID                                             `json:"eos_token_id"`
}

// Encode returns a serializable snapshot of idx.
func (idx *Index) Encode() Encoded {
	return Encoded{
		Transitions: idx.TransitionsView(),
		FinalStates: idx.FinalStates(),
		Initial:     idx.initial,
		EOSTokenID:  idx.eosID,
	}
}

// FromEncoded reconstructs an Index from a previously Encoded snapshot,
// without repeating the BFS construction.
func FromEncoded(e Encoded) *Index {
	transitions := make(map[automaton.StateID]map[vocabulary.TokenID]automaton.StateID, len(e.Transitions))
	for s, row := range e.Transitions {
		cp := make(map[vocabulary.TokenID]automaton.StateID, len(row))
		for k, v := range row {
			cp[k] = v
		}
		transitions[s] = cp
	}
	finals := make([]automaton.StateID, len(e.FinalStates))
	copy(finals, e.FinalStates)
	return &Index{
		transitions: transitions,
		finalStates: finals,
		initial:     e.Initial,
		eosID:       e.EOSTokenID,
	}
}

// EOSTokenID returns the end-of-sequence token id this Index was built with.
func (idx *Index) EOSTokenID() vocabulary.TokenID {
	return idx.eosID
}
