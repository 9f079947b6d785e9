package schema

import (
	"strings"

	"github.com/latticeforge/gridlex/pkg/regexatoms"
)

// maxPermutedRequired is the largest required-key count for which compileObject
// enumerates exact key-order permutations. Above it, the factorial blowup
// makes the regex unusable, so compileObject falls back to the relaxed
// unorderedObjectRegex construction instead.
const maxPermutedRequired = 6

type objectProp struct {
	name     string
	valueRx  string
	required bool
}

func (c *compiler) compileObject(s map[string]interface{}) (string, error) {
	propsRaw, _ := s["properties"].(map[string]interface{})
	requiredSet := map[string]bool{}
	if req, ok := s["required"].([]interface{}); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				requiredSet[name] = true
			}
		}
	}

	props := make([]objectProp, 0, len(propsRaw))
	seen := map[string]bool{}
	for _, name := range sortedKeys(propsRaw) {
		rx, err := c.compileNode(propsRaw[name])
		if err != nil {
			return "", err
		}
		props = append(props, objectProp{name: name, valueRx: rx, required: requiredSet[name]})
		seen[name] = true
	}
	// required names absent from "properties" still constrain the instance;
	// their value is unconstrained JSON.
	for name := range requiredSet {
		if seen[name] {
			continue
		}
		anyRx, err := c.compileNode(true)
		if err != nil {
			return "", err
		}
		props = append(props, objectProp{name: name, valueRx: anyRx, required: true})
	}

	allowAdditional := true
	if v, ok := s["additionalProperties"].(bool); ok {
		allowAdditional = v
	}

	requiredCount := 0
	for _, p := range props {
		if p.required {
			requiredCount++
		}
	}

	var body string
	if requiredCount > maxPermutedRequired {
		body = c.unorderedObjectRegex(props, allowAdditional)
	} else {
		body = c.permutedObjectRegex(props, allowAdditional)
	}
	return `\{` + c.ws + body + c.ws + `\}`, nil
}

func entryRegex(ws, name, valueRx string) string {
	return `"` + regexp2Escape(name) + `"` + ws + `:` + ws + "(?:" + valueRx + ")"
}

// permutedObjectRegex enumerates every ordering of the required properties
// (an object's keys carry no order, and the grammar must accept all of them),
// then appends the optional properties in a fixed order, each individually
// optional, after the required block.
func (c *compiler) permutedObjectRegex(props []objectProp, allowAdditional bool) string {
	var required, optional []objectProp
	for _, p := range props {
		if p.required {
			required = append(required, p)
		} else {
			optional = append(optional, p)
		}
	}

	requiredAlts := make([]string, 0)
	if len(required) == 0 {
		requiredAlts = append(requiredAlts, "")
	} else {
		permute(required, func(order []objectProp) {
			entries := make([]string, len(order))
			for i, p := range order {
				entries[i] = entryRegex(c.ws, p.name, p.valueRx)
			}
			requiredAlts = append(requiredAlts, strings.Join(entries, ","+c.ws))
		})
	}

	var b strings.Builder
	if len(requiredAlts) == 1 {
		b.WriteString(requiredAlts[0])
	} else {
		b.WriteString("(?:" + strings.Join(requiredAlts, "|") + ")")
	}

	for _, p := range optional {
		prefix := ","
		if len(required) == 0 && b.Len() == 0 {
			prefix = ""
		}
		b.WriteString("(?:" + prefix + c.ws + entryRegex(c.ws, p.name, p.valueRx) + ")?")
	}

	if allowAdditional {
		b.WriteString(additionalPropertiesTail(c.ws))
	}
	return b.String()
}

// unorderedObjectRegex trades exact required-key enforcement for a regular
// expression at all: instead of permuting a required set too large to
// enumerate, it accepts any comma-separated sequence drawn from the known
// property entries (in any order, any entry possibly repeated), which admits
// every valid instance but also some instances missing a required key.
func (c *compiler) unorderedObjectRegex(props []objectProp, allowAdditional bool) string {
	entries := make([]string, len(props))
	for i, p := range props {
		entries[i] = entryRegex(c.ws, p.name, p.valueRx)
	}
	alt := "(?:" + strings.Join(entries, "|") + ")"
	body := "(?:" + alt + "(?:," + c.ws + alt + ")*)?"
	if allowAdditional {
		return body + additionalPropertiesTail(c.ws)
	}
	return body
}

// additionalPropertiesTail allows zero or more generic "key": value entries
// beyond the declared properties, each gated behind a leading comma when the
// object already has at least one declared property.
func additionalPropertiesTail(ws string) string {
	genericValue := "(?:" + regexatoms.STRING + "|" + regexatoms.NUMBER + "|" +
		regexatoms.BOOLEAN + "|" + regexatoms.NULL + ")"
	generic := `"` + stringInnerChar + `*"` + ws + `:` + ws + genericValue
	return "(?:," + ws + generic + ")*"
}

// permute calls visit once for every permutation of items, in lexicographic
// order of the input slice (Heap's algorithm).
func permute(items []objectProp, visit func([]objectProp)) {
	n := len(items)
	buf := make([]objectProp, n)
	copy(buf, items)
	var rec func(k int)
	rec = func(k int) {
		if k == 1 {
			out := make([]objectProp, n)
			copy(out, buf)
			visit(out)
			return
		}
		for i := 0; i < k; i++ {
			rec(k - 1)
			if k%2 == 0 {
				buf[i], buf[k-1] = buf[k-1], buf[i]
			} else {
				buf[0], buf[k-1] = buf[k-1], buf[0]
			}
		}
	}
	rec(n)
}

// compileAllOfObjects merges same-typed object schemas by unioning their
// properties and required sets; a property declared in more than one branch
// keeps the first declaration's schema.
func (c *compiler) compileAllOfObjects(objs []map[string]interface{}) (string, error) {
	merged := map[string]interface{}{}
	properties := map[string]interface{}{}
	var required []interface{}
	additionalProperties := true

	for _, o := range objs {
		if props, ok := o["properties"].(map[string]interface{}); ok {
			for k, v := range props {
				if _, exists := properties[k]; !exists {
					properties[k] = v
				}
			}
		}
		if req, ok := o["required"].([]interface{}); ok {
			required = append(required, req...)
		}
		if ap, ok := o["additionalProperties"].(bool); ok && !ap {
			additionalProperties = false
		}
	}

	merged["type"] = "object"
	merged["properties"] = properties
	merged["required"] = required
	merged["additionalProperties"] = additionalProperties
	return c.compileObject(merged)
}
