package automaton

// nfaKind identifies the shape of an nfaState.
type nfaKind uint8

const (
	kindByteRange nfaKind = iota
	kindSplit
	kindMatch
)

// nfaState is one node of the byte-level Thompson NFA. A byteRange state
// consumes exactly one byte in [lo, hi] and moves to out1; a split state is an
// epsilon transition to both out1 and out2; a match state has no outgoing
// transitions and marks acceptance.
type nfaState struct {
	kind   nfaKind
	lo, hi byte
	out1   int
	out2   int
}

const noTarget = -1

// nfa is the compiled Thompson construction for a single pattern, over bytes.
// Unicode rune ranges are expanded into chains of byte-range states at build
// time, so everything downstream only ever deals with bytes.
type nfa struct {
	states []nfaState
	start  int
}

// patch is a dangling out-pointer of a fragment: states[idx].out{1,2} still
// needs to be filled in with the fragment's successor.
type patch struct {
	idx  int
	slot int // 1 or 2
}

// fragment is a partially-built sub-machine: an entry state and the list of
// dangling exits that the caller must patch to continue the machine.
type fragment struct {
	start int
	outs  []patch
}

type nfaBuilder struct {
	states []nfaState
}

func (b *nfaBuilder) newState(kind nfaKind, lo, hi byte) int {
	b.states = append(b.states, nfaState{kind: kind, lo: lo, hi: hi, out1: noTarget, out2: noTarget})
	return len(b.states) - 1
}

func (b *nfaBuilder) patch(outs []patch, target int) {
	for _, p := range outs {
		if p.slot == 1 {
			b.states[p.idx].out1 = target
		} else {
			b.states[p.idx].out2 = target
		}
	}
}

// buildNFA compiles a parsed regex AST into a byte-level NFA with a single
// match state.
func buildNFA(root node) *nfa {
	b := &nfaBuilder{}
	frag := b.compile(root)
	matchState := b.newState(kindMatch, 0, 0)
	b.patch(frag.outs, matchState)
	return &nfa{states: b.states, start: frag.start}
}

func (b *nfaBuilder) compile(n node) fragment {
	switch v := n.(type) {
	case litNode:
		return b.compileRuneRanges([]runeRange{{v.r, v.r}}, false)
	case anyCharNode:
		return b.compileRuneRanges(nil, true)
	case classNode:
		ranges := v.ranges
		if v.negate {
			ranges = negateRanges(ranges)
		}
		return b.compileRuneRanges(ranges, false)
	case concatNode:
		return b.compileConcat(v.subs)
	case altNode:
		return b.compileAlt(v.subs)
	case starNode:
		return b.compileStar(v.sub)
	case plusNode:
		return b.compilePlus(v.sub)
	case questNode:
		return b.compileQuest(v.sub)
	case repeatNode:
		return b.compileRepeat(v)
	default:
		panic("automaton: unknown ast node")
	}
}

func (b *nfaBuilder) compileConcat(subs []node) fragment {
	if len(subs) == 0 {
		// Empty concatenation matches the empty string: an epsilon split whose
		// out1 is the single open exit (out2 stays unset).
		s := b.newState(kindSplit, 0, 0)
		return fragment{start: s, outs: []patch{{idx: s, slot: 1}}}
	}
	first := b.compile(subs[0])
	start := first.start
	outs := first.outs
	for _, sub := range subs[1:] {
		next := b.compile(sub)
		b.patch(outs, next.start)
		outs = next.outs
	}
	return fragment{start: start, outs: outs}
}

func (b *nfaBuilder) compileAlt(subs []node) fragment {
	if len(subs) == 1 {
		return b.compile(subs[0])
	}
	frags := make([]fragment, len(subs))
	for i, sub := range subs {
		frags[i] = b.compile(sub)
	}
	// Fold right-associatively: split(a, split(b, split(c, d)))
	cur := frags[len(frags)-1]
	for i := len(frags) - 2; i >= 0; i-- {
		s := b.newState(kindSplit, 0, 0)
		b.states[s].out1 = frags[i].start
		b.states[s].out2 = cur.start
		outs := append(append([]patch{}, frags[i].outs...), cur.outs...)
		cur = fragment{start: s, outs: outs}
	}
	return cur
}

func (b *nfaBuilder) compileStar(sub node) fragment {
	frag := b.compile(sub)
	s := b.newState(kindSplit, 0, 0)
	b.states[s].out1 = frag.start
	b.patch(frag.outs, s)
	return fragment{start: s, outs: []patch{{idx: s, slot: 2}}}
}

func (b *nfaBuilder) compilePlus(sub node) fragment {
	frag := b.compile(sub)
	s := b.newState(kindSplit, 0, 0)
	b.states[s].out1 = frag.start
	b.patch(frag.outs, s)
	return fragment{start: frag.start, outs: []patch{{idx: s, slot: 2}}}
}

func (b *nfaBuilder) compileQuest(sub node) fragment {
	frag := b.compile(sub)
	s := b.newState(kindSplit, 0, 0)
	b.states[s].out1 = frag.start
	outs := append([]patch{{idx: s, slot: 2}}, frag.outs...)
	return fragment{start: s, outs: outs}
}

func (b *nfaBuilder) compileRepeat(r repeatNode) fragment {
	if r.max == 0 {
		return b.compileConcat(nil) // {0,0}: matches only the empty string
	}
	// r.min required copies, then (max - min) optional copies, or an
	// unbounded star appended after the required copies when max == -1.
	required := r.min
	if r.max == -1 && required == 0 {
		return b.compileStar(r.sub)
	}
	var subs []node
	for i := 0; i < required; i++ {
		subs = append(subs, r.sub)
	}
	if r.max == -1 {
		subs = append(subs, starNode{sub: r.sub})
	} else {
		for i := 0; i < r.max-required; i++ {
			subs = append(subs, questNode{sub: r.sub})
		}
	}
	return b.compileConcat(subs)
}

// compileRuneRanges compiles a set of rune ranges into a fragment that matches
// exactly one Unicode scalar value in that set, encoded as an alternation of
// UTF-8 byte-range chains. anyChar requests the full scalar-value range and
// ignores ranges. Negated classes are complemented by the caller beforehand.
func (b *nfaBuilder) compileRuneRanges(ranges []runeRange, anyChar bool) fragment {
	effective := ranges
	if anyChar {
		effective = []runeRange{{0, maxRune}}
	} else {
		effective = normalizeRanges(ranges)
	}
	var seqs []byteRangeSeq
	for _, rr := range effective {
		seqs = append(seqs, utf8Ranges(rr.lo, rr.hi)...)
	}
	if len(seqs) == 0 {
		// A class that matches nothing: fragment that can never reach match.
		s := b.newState(kindByteRange, 1, 0) // lo > hi: never satisfied
		return fragment{start: s, outs: []patch{{idx: s, slot: 1}}}
	}
	frags := make([]fragment, len(seqs))
	for i, seq := range seqs {
		frags[i] = b.compileByteSeq(seq)
	}
	if len(frags) == 1 {
		return frags[0]
	}
	cur := frags[len(frags)-1]
	for i := len(frags) - 2; i >= 0; i-- {
		s := b.newState(kindSplit, 0, 0)
		b.states[s].out1 = frags[i].start
		b.states[s].out2 = cur.start
		outs := append(append([]patch{}, frags[i].outs...), cur.outs...)
		cur = fragment{start: s, outs: outs}
	}
	return cur
}

// compileByteSeq compiles one concrete byte-range sequence (one UTF-8 encoding
// shape) into a chain of consuming states.
func (b *nfaBuilder) compileByteSeq(seq byteRangeSeq) fragment {
	start := b.newState(kindByteRange, seq[0].lo, seq[0].hi)
	outs := []patch{{idx: start, slot: 1}}
	for _, br := range seq[1:] {
		s := b.newState(kindByteRange, br.lo, br.hi)
		b.patch(outs, s)
		outs = []patch{{idx: s, slot: 1}}
	}
	return fragment{start: start, outs: outs}
}
