package automaton

import "unicode/utf8"

// byteRange is an inclusive range of byte values, one "column" of a UTF-8
// encoding shape.
type byteRange struct{ lo, hi byte }

// byteRangeSeq is a sequence of 1-4 byteRanges whose Cartesian concatenation
// (first byte drawn from seq[0]'s range, second from seq[1]'s, ...) is exactly
// the set of UTF-8 encodings covered by that sequence.
type byteRangeSeq []byteRange

// utf8Ranges decomposes the rune range [lo, hi] into the minimal set of
// byteRangeSeq values whose concatenated byte ranges, taken together, encode
// exactly the UTF-8 byte strings of the runes in [lo, hi]. This is the
// classic technique used by regex engines (e.g. Rust's utf8-ranges /
// regex-automata) to lift a Unicode character class into a byte-oriented NFA
// without ever materializing one state per codepoint.
func utf8Ranges(lo, hi rune) []byteRangeSeq {
	if lo > hi {
		return nil
	}
	var out []byteRangeSeq
	for _, span := range splitByEncodingLength(lo, hi) {
		n := utf8.RuneLen(span.lo)
		loB := make([]byte, n)
		hiB := make([]byte, n)
		utf8.EncodeRune(loB, span.lo)
		utf8.EncodeRune(hiB, span.hi)
		out = append(out, splitBytes(loB, hiB)...)
	}
	return out
}

// splitByEncodingLength splits [lo, hi] at UTF-8 encoding-length boundaries
// (1, 2, 3 and 4-byte forms) and at the UTF-16 surrogate gap, so every
// resulting sub-range encodes to a fixed number of bytes with no gap runes
// inside it.
func splitByEncodingLength(lo, hi rune) []runeRange {
	ranges := normalizeRanges([]runeRange{{lo, hi}})
	boundaries := []rune{0x7F, 0x7FF, 0xFFFF, maxRune}
	var out []runeRange
	for _, r := range ranges {
		cur := r.lo
		for _, b := range boundaries {
			if cur > r.hi {
				break
			}
			if cur <= b {
				upper := b
				if upper > r.hi {
					upper = r.hi
				}
				out = append(out, runeRange{cur, upper})
				cur = upper + 1
			}
		}
	}
	return out
}

// splitBytes recursively splits the UTF-8 encodings of loB..hiB (same
// length, same encoding-length class) into byteRangeSeq values. It is the
// byte-level workhorse behind utf8Ranges.
func splitBytes(loB, hiB []byte) []byteRangeSeq {
	n := len(loB)
	if n == 1 {
		return []byteRangeSeq{{{loB[0], hiB[0]}}}
	}
	if loB[0] == hiB[0] {
		rest := splitBytes(loB[1:], hiB[1:])
		out := make([]byteRangeSeq, len(rest))
		for i, seq := range rest {
			out[i] = append(byteRangeSeq{{loB[0], loB[0]}}, seq...)
		}
		return out
	}

	var out []byteRangeSeq

	loRest := loB[1:]
	loFirst := loB[0]
	if !allBytes(loRest, 0x80) {
		maxRest := make([]byte, n-1)
		for i := range maxRest {
			maxRest[i] = 0xBF
		}
		for _, seq := range splitBytes(loRest, maxRest) {
			out = append(out, append(byteRangeSeq{{loFirst, loFirst}}, seq...))
		}
		loFirst++
	}

	hiRest := hiB[1:]
	hiFirst := hiB[0]
	hiIsMax := allBytes(hiRest, 0xBF)
	if !hiIsMax {
		minRest := make([]byte, n-1)
		for i := range minRest {
			minRest[i] = 0x80
		}
		for _, seq := range splitBytes(minRest, hiRest) {
			out = append(out, append(byteRangeSeq{{hiFirst, hiFirst}}, seq...))
		}
		hiFirst--
	}

	if loFirst <= hiFirst {
		fullRest := make(byteRangeSeq, n-1)
		for i := range fullRest {
			fullRest[i] = byteRange{0x80, 0xBF}
		}
		out = append(out, append(byteRangeSeq{{loFirst, hiFirst}}, fullRest...))
	}

	return out
}

func allBytes(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}
