package schema

import (
	"strconv"
	"strings"

	"github.com/latticeforge/gridlex/pkg/regexatoms"
)

func (c *compiler) compileInteger(s map[string]interface{}) (string, error) {
	minR, hasMin := asInt(s["minimum"])
	maxR, hasMax := asInt(s["maximum"])
	if !hasMin && !hasMax {
		return regexatoms.INTEGER, nil
	}
	if !hasMin {
		minR = -1 << 62
	}
	if !hasMax {
		maxR = 1<<62 - 1
	}
	if minR > maxR {
		return "", invalid("minimum %d is greater than maximum %d", minR, maxR)
	}
	return integerRangeRegex(minR, maxR), nil
}

func (c *compiler) compileNumber(s map[string]interface{}) (string, error) {
	// Bounded "number" schemas constrain the integer part the same way
	// "integer" does and leave the fractional/exponent part free; the regex
	// remains a strict superset-safe approximation when bounds interact with
	// fractional values.
	_, hasMin := s["minimum"]
	_, hasMax := s["maximum"]
	if !hasMin && !hasMax {
		return regexatoms.NUMBER, nil
	}
	minR, okMin := asInt(s["minimum"])
	if !okMin {
		minR = -1 << 62
	}
	maxR, okMax := asInt(s["maximum"])
	if !okMax {
		maxR = 1<<62 - 1
	}
	intPart := integerRangeRegex(minR, maxR)
	return intPart + `(\.[0-9]+)?([eE][+-]?[0-9]+)?`, nil
}

// integerRangeRegex returns a regex matching the decimal representation
// (JSON integer syntax: optional leading '-', no leading zeros) of every
// integer in [min, max].
func integerRangeRegex(min, max int64) string {
	switch {
	case min >= 0:
		return unsignedRangeRegex(uint64(min), uint64(max))
	case max < 0:
		return "-" + unsignedRangeRegex(uint64(-max), uint64(-min))
	default:
		neg := "-" + unsignedRangeRegex(1, uint64(-min))
		pos := unsignedRangeRegex(0, uint64(max))
		return "(?:" + neg + "|" + pos + ")"
	}
}

// unsignedRangeRegex matches the decimal digits of every unsigned integer in
// [lo, hi], with no leading zeros (other than the literal "0" itself).
func unsignedRangeRegex(lo, hi uint64) string {
	var alts []string
	for _, span := range splitByDigitLength(lo, hi) {
		loStr := strconv.FormatUint(span.lo, 10)
		hiStr := strconv.FormatUint(span.hi, 10)
		alts = append(alts, sameLengthRangeRegex(loStr, hiStr))
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return "(?:" + strings.Join(alts, "|") + ")"
}

type uintSpan struct{ lo, hi uint64 }

// splitByDigitLength splits [lo, hi] at powers-of-ten boundaries so every
// resulting span contains only numbers with the same decimal digit count.
func splitByDigitLength(lo, hi uint64) []uintSpan {
	var spans []uintSpan
	cur := lo
	bound := uint64(9)
	for cur <= hi {
		upper := bound
		if upper > hi {
			upper = hi
		}
		spans = append(spans, uintSpan{cur, upper})
		cur = upper + 1
		if bound > (1<<63)/10 {
			// Stop before overflow; practical schema bounds never reach here.
			if cur <= hi {
				spans = append(spans, uintSpan{cur, hi})
			}
			break
		}
		bound = bound*10 + 9
	}
	return spans
}

// sameLengthRangeRegex builds a digit-class regex matching every decimal
// string between loStr and hiStr (same length, no leading zeros), using the
// same recursive "peel the first differing digit" technique as
// pkg/automaton's UTF-8 byte-range splitting.
func sameLengthRangeRegex(loStr, hiStr string) string {
	if len(loStr) == 1 {
		if loStr == hiStr {
			return loStr
		}
		return "[" + loStr + "-" + hiStr + "]"
	}
	if loStr[0] == hiStr[0] {
		return string(loStr[0]) + sameLengthRangeRegex(loStr[1:], hiStr[1:])
	}

	n := len(loStr) - 1
	var parts []string

	loFirst := loStr[0]
	loRest := loStr[1:]
	if loRest != strings.Repeat("0", n) {
		parts = append(parts, string(loFirst)+sameLengthRangeRegex(loRest, strings.Repeat("9", n)))
		loFirst++
	}

	hiFirst := hiStr[0]
	hiRest := hiStr[1:]
	if hiRest != strings.Repeat("9", n) {
		parts = append(parts, string(hiFirst)+sameLengthRangeRegex(strings.Repeat("0", n), hiRest))
		hiFirst--
	}

	if loFirst <= hiFirst {
		digits := "[0-9]"
		mid := digits
		if n > 1 {
			mid = strings.Repeat(digits, n)
		} else if n == 0 {
			mid = ""
		}
		if loFirst == hiFirst {
			parts = append(parts, string(loFirst)+mid)
		} else {
			parts = append(parts, "["+string(loFirst)+"-"+string(hiFirst)+"]"+mid)
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return "(?:" + strings.Join(parts, "|") + ")"
}
