package schema

import (
	"strconv"

	"github.com/latticeforge/gridlex/pkg/regexatoms"
)

// stringInnerChar is a single character of a JSON string body: one
// unescaped, non-control, non-quote/backslash rune or one JSON escape
// sequence. regexatoms.STRING_INNER is exactly stringInnerChar repeated zero
// or more times; minLength/maxLength need the same fragment with an explicit
// repetition count instead of "*".
const stringInnerChar = `([^"\\\x00-\x1f]|\\["\\/bfnrt]|\\u[0-9a-fA-F]{4})`

var formatAtoms = map[string]string{
	"date":      regexatoms.DATE,
	"time":      regexatoms.TIME,
	"date-time": regexatoms.DATE_TIME,
	"uuid":      regexatoms.UUID,
	"email":     regexatoms.EMAIL,
	"uri":       regexatoms.URI,
}

func (c *compiler) compileString(s map[string]interface{}) (string, error) {
	if format, ok := s["format"].(string); ok {
		atom, known := formatAtoms[format]
		if !known {
			return "", unsupported("unknown string format %q", format)
		}
		if _, hasLen := s["minLength"]; hasLen {
			return "", unsupported("minLength/maxLength cannot be combined with format %q", format)
		}
		if _, hasLen := s["maxLength"]; hasLen {
			return "", unsupported("minLength/maxLength cannot be combined with format %q", format)
		}
		return atom, nil
	}

	minLen, hasMin := asInt(s["minLength"])
	maxLen, hasMax := asInt(s["maxLength"])
	if !hasMin && !hasMax {
		return regexatoms.STRING, nil
	}
	if !hasMin {
		minLen = 0
	}
	if hasMax && maxLen < minLen {
		return "", invalid("maxLength %d is less than minLength %d", maxLen, minLen)
	}
	var body string
	switch {
	case hasMax:
		body = stringInnerChar + "{" + strconv.FormatInt(minLen, 10) + "," + strconv.FormatInt(maxLen, 10) + "}"
	default:
		body = stringInnerChar + "{" + strconv.FormatInt(minLen, 10) + ",}"
	}
	return `"` + body + `"`, nil
}
