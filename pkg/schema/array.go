package schema

// maxUnrolledItems bounds how many optional trailing array slots compileArray
// will unroll as explicit nested-optional groups before falling back to an
// unbounded "*" tail; beyond the bound, maxItems stops being enforced exactly
// (documented in DESIGN.md).
const maxUnrolledItems = 32

func (c *compiler) compileArray(s map[string]interface{}) (string, error) {
	minItems, _ := asInt(s["minItems"])
	maxItems, hasMax := asInt(s["maxItems"])
	if hasMax && maxItems < minItems {
		return "", invalid("maxItems %d is less than minItems %d", maxItems, minItems)
	}

	prefix, _ := s["prefixItems"].([]interface{})
	itemsRaw, hasItems := s["items"]

	var prefixRx []string
	for _, it := range prefix {
		rx, err := c.compileNode(it)
		if err != nil {
			return "", err
		}
		prefixRx = append(prefixRx, rx)
	}

	allowTail := true
	var tailRx string
	switch {
	case hasItems && itemsRaw == false:
		allowTail = false
	case hasItems:
		rx, err := c.compileNode(itemsRaw)
		if err != nil {
			return "", err
		}
		tailRx = rx
	default:
		rx, err := c.compileNode(true)
		if err != nil {
			return "", err
		}
		tailRx = rx
	}

	if !allowTail && hasMax && maxItems > int64(len(prefixRx)) {
		return "", invalid("items:false allows no elements past position %d but maxItems is %d", len(prefixRx), maxItems)
	}
	if !allowTail && minItems > int64(len(prefixRx)) {
		return "", invalid("items:false allows no elements past position %d but minItems is %d", len(prefixRx), minItems)
	}

	tailMin := minItems - int64(len(prefixRx))
	if tailMin < 0 {
		tailMin = 0
	}
	tailMax := int64(-1)
	if hasMax {
		tailMax = maxItems - int64(len(prefixRx))
		if tailMax < 0 {
			tailMax = 0
		}
	}

	body := joinFixed(c.ws, prefixRx)
	if allowTail {
		tail := repeatedTail(c.ws, tailRx, tailMin, tailMax)
		body = appendSequence(c.ws, body, tail)
	}
	return `\[` + c.ws + body + c.ws + `\]`, nil
}

func joinFixed(ws string, parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "," + ws
		}
		out += "(?:" + p + ")"
	}
	return out
}

// appendSequence concatenates two already-built comma-separated fragments,
// inserting the connecting ",ws" only when both sides are non-empty.
func appendSequence(ws, a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "," + ws + b
}

// repeatedTail builds a regex for min..max (max == -1 meaning unbounded)
// comma-separated repetitions of elemRx, self-contained (no leading comma).
func repeatedTail(ws, elemRx string, min, max int64) string {
	if max == 0 {
		return ""
	}
	elem := "(?:" + elemRx + ")"

	required := make([]string, min)
	for i := range required {
		required[i] = elem
	}
	reqJoined := ""
	for i, r := range required {
		if i > 0 {
			reqJoined += "," + ws
		}
		reqJoined += r
	}

	if max == -1 || max-min > maxUnrolledItems {
		star := elem + "(?:," + ws + elem + ")*"
		if min == 0 {
			return "(?:" + star + ")?"
		}
		return reqJoined + "(?:," + ws + star + ")?"
	}

	optCount := max - min
	if optCount == 0 {
		return reqJoined
	}
	// Nest optional copies so the (i+1)th can appear only if the ith does.
	nested := ""
	for i := int64(0); i < optCount; i++ {
		nested = "(?:," + ws + elem + nested + ")?"
	}
	if min == 0 {
		return "(?:" + elem + nested + ")?"
	}
	return reqJoined + nested
}
