// Package schema compiles a JSON Schema document into a regex string whose
// language is exactly the JSON instances conforming to that schema. The
// walker is a straightforward recursive descent over the decoded JSON
// document, in the same "walk a tree, emit a fragment per node, compose with
// concatenation/alternation/repetition" shape as a typechecker walking an AST.
package schema

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/latticeforge/gridlex/pkg/regexatoms"
)

// Options configures a single BuildRegexFromSchema call.
type Options struct {
	// WhitespacePattern, if non-empty, replaces regexatoms.WHITESPACE between
	// structural tokens (commas, colons, braces, brackets).
	WhitespacePattern string
}

// BuildRegexFromSchema walks schemaJSON (a JSON Schema document) and returns a
// regex string whose language is exactly the JSON instances conforming to it.
func BuildRegexFromSchema(schemaJSON []byte, opts Options) (string, error) {
	var doc interface{}
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return "", invalid("not valid JSON: %v", err)
	}
	ws := regexatoms.WHITESPACE
	if opts.WhitespacePattern != "" {
		ws = opts.WhitespacePattern
	}
	c := &compiler{root: doc, ws: ws, refStack: map[string]bool{}}
	return c.compileNode(doc)
}

type compiler struct {
	root     interface{}
	ws       string
	refStack map[string]bool
}

func (c *compiler) compileNode(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case bool:
		// JSON Schema "true"/"false" as a whole schema. "true" accepts any scalar
		// JSON value (string, number, boolean, null); objects and arrays are not
		// matched. "false" matches nothing and is rejected.
		if v {
			return regexatoms.STRING + "|" + regexatoms.NUMBER + "|" + regexatoms.BOOLEAN + "|" + regexatoms.NULL, nil
		}
		return "", unsupported(`schema "false" matches no instance`)
	case map[string]interface{}:
		return c.compileObjectSchema(v)
	default:
		return "", invalid("schema node must be a JSON object or boolean, got %T", raw)
	}
}

func (c *compiler) compileObjectSchema(s map[string]interface{}) (string, error) {
	if ref, ok := s["$ref"].(string); ok {
		return c.compileRef(ref)
	}
	if enum, ok := s["enum"].([]interface{}); ok {
		return c.compileEnum(enum)
	}
	if cst, ok := s["const"]; ok {
		return jsonLiteralRegex(cst)
	}
	if anyOf, ok := s["anyOf"].([]interface{}); ok {
		return c.compileAnyOf(anyOf)
	}
	if oneOf, ok := s["oneOf"].([]interface{}); ok {
		return c.compileAnyOf(oneOf)
	}
	if allOf, ok := s["allOf"].([]interface{}); ok {
		return c.compileAllOf(allOf)
	}

	typ, err := schemaType(s)
	if err != nil {
		return "", err
	}
	switch typ {
	case "string":
		return c.compileString(s)
	case "integer":
		return c.compileInteger(s)
	case "number":
		return c.compileNumber(s)
	case "boolean":
		return regexatoms.BOOLEAN, nil
	case "null":
		return regexatoms.NULL, nil
	case "array":
		return c.compileArray(s)
	case "object":
		return c.compileObject(s)
	case "":
		// No "type": accept any scalar JSON value; objects and arrays are not
		// matched.
		return regexatoms.STRING + "|" + regexatoms.NUMBER + "|" + regexatoms.BOOLEAN + "|" + regexatoms.NULL, nil
	default:
		return "", unsupported("unknown schema type %q", typ)
	}
}

// schemaType extracts the "type" keyword, rejecting the multi-type array form
// (["string","null"]) as unsupported: those need a top-level alternation the
// distilled JSON-Schema-to-regex contract here does not define precedence
// rules for, so callers should pre-expand them into anyOf.
func schemaType(s map[string]interface{}) (string, error) {
	raw, ok := s["type"]
	if !ok {
		return "", nil
	}
	switch t := raw.(type) {
	case string:
		return t, nil
	case []interface{}:
		return "", unsupported("multi-type \"type\" arrays are not supported; express as anyOf instead")
	default:
		return "", invalid("\"type\" must be a string, got %T", raw)
	}
}

func (c *compiler) compileRef(ref string) (string, error) {
	if c.refStack[ref] {
		return "", &RecursionUnsupportedError{Ref: ref}
	}
	target, err := resolveJSONPointer(c.root, ref)
	if err != nil {
		return "", err
	}
	c.refStack[ref] = true
	defer delete(c.refStack, ref)
	return c.compileNode(target)
}

// resolveJSONPointer resolves a "#/a/b/c"-style local JSON pointer against
// root. Only local (same-document) references are supported; external $ref
// targets are out of scope (the Index builder has no model-hub/network access).
func resolveJSONPointer(root interface{}, ref string) (interface{}, error) {
	if !strings.HasPrefix(ref, "#/") && ref != "#" {
		return nil, unsupported("only local \"#/...\" $ref pointers are supported, got %q", ref)
	}
	cur := root
	if ref == "#" {
		return cur, nil
	}
	for _, tok := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		tok = strings.ReplaceAll(tok, "~1", "/")
		tok = strings.ReplaceAll(tok, "~0", "~")
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, invalid("$ref %q: cannot descend into non-object at %q", ref, tok)
		}
		next, ok := m[tok]
		if !ok {
			return nil, invalid("$ref %q: no such key %q", ref, tok)
		}
		cur = next
	}
	return cur, nil
}

func (c *compiler) compileEnum(values []interface{}) (string, error) {
	alts := make([]string, 0, len(values))
	for _, v := range values {
		lit, err := jsonLiteralRegex(v)
		if err != nil {
			return "", err
		}
		alts = append(alts, lit)
	}
	return "(?:" + strings.Join(alts, "|") + ")", nil
}

func (c *compiler) compileAnyOf(schemas []interface{}) (string, error) {
	alts := make([]string, 0, len(schemas))
	for _, s := range schemas {
		r, err := c.compileNode(s)
		if err != nil {
			return "", err
		}
		alts = append(alts, "(?:"+r+")")
	}
	return "(?:" + strings.Join(alts, "|") + ")", nil
}

// compileAllOf approximates intersection by conjunction where it can be done
// by merging branches that are all object schemas (union of
// properties/required). Any other combination, numeric branches included,
// fails with UnsupportedSchemaError.
func (c *compiler) compileAllOf(schemas []interface{}) (string, error) {
	if len(schemas) == 0 {
		return "", invalid("allOf must not be empty")
	}
	objs := make([]map[string]interface{}, 0, len(schemas))
	allObjects := true
	for _, raw := range schemas {
		m, ok := raw.(map[string]interface{})
		if !ok {
			allObjects = false
			break
		}
		if t, _ := schemaType(m); t != "object" {
			allObjects = false
			break
		}
		objs = append(objs, m)
	}
	if allObjects {
		return c.compileAllOfObjects(objs)
	}
	return "", unsupported("allOf intersection is not expressible as a single regex for these branches")
}

func jsonLiteralRegex(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", invalid("cannot encode literal %v: %v", v, err)
	}
	return regexp2Escape(string(b)), nil
}

// regexp2Escape escapes every regex metacharacter in s so the result matches
// s literally.
func regexp2Escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asInt(v interface{}) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
