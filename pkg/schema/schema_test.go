package schema

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compileAndMatch builds the regex for schemaJSON and asserts it fully
// matches every instance in want and rejects every instance in reject. The
// compiled construction is a superset-safe regex (Go's RE2 engine can't run
// the byte-level DFA the runtime Index uses), so this only checks the shape
// of the emitted pattern, not token-level behavior.
func compileAndMatch(t *testing.T, schemaJSON string, want, reject []string) string {
	t.Helper()
	rx, err := BuildRegexFromSchema([]byte(schemaJSON), Options{})
	require.NoError(t, err)
	re, err := regexp.Compile("^(?:" + rx + ")$")
	require.NoError(t, err, "generated pattern must itself be a valid regex: %s", rx)
	for _, w := range want {
		assert.True(t, re.MatchString(w), "expected match: %s against %s", w, rx)
	}
	for _, r := range reject {
		assert.False(t, re.MatchString(r), "expected no match: %s against %s", r, rx)
	}
	return rx
}

func TestBuildRegexFromSchema_Primitives(t *testing.T) {
	compileAndMatch(t, `{"type":"boolean"}`, []string{"true", "false"}, []string{"True", "1"})
	compileAndMatch(t, `{"type":"null"}`, []string{"null"}, []string{"Null", ""})
	compileAndMatch(t, `{"type":"string"}`, []string{`"hello"`, `""`}, []string{"hello"})
}

func TestBuildRegexFromSchema_IntegerBounds(t *testing.T) {
	compileAndMatch(t, `{"type":"integer","minimum":0,"maximum":20}`,
		[]string{"0", "5", "20"}, []string{"21", "-1", "100"})
	compileAndMatch(t, `{"type":"integer","minimum":-5,"maximum":5}`,
		[]string{"-5", "-1", "0", "5"}, []string{"-6", "6"})
}

func TestBuildRegexFromSchema_Enum(t *testing.T) {
	compileAndMatch(t, `{"enum":["a","b",1]}`, []string{`"a"`, `"b"`, "1"}, []string{`"c"`, "2"})
}

func TestBuildRegexFromSchema_Const(t *testing.T) {
	compileAndMatch(t, `{"const":"fixed"}`, []string{`"fixed"`}, []string{`"other"`})
}

func TestBuildRegexFromSchema_AnyOf(t *testing.T) {
	compileAndMatch(t, `{"anyOf":[{"type":"integer"},{"type":"boolean"}]}`,
		[]string{"1", "true", "false"}, []string{`"x"`})
}

func TestBuildRegexFromSchema_ArrayOfInteger(t *testing.T) {
	compileAndMatch(t, `{"type":"array","items":{"type":"integer"},"minItems":1,"maxItems":3}`,
		[]string{"[1]", "[1, 2]", "[1, 2, 3]"}, []string{"[]", "[1, 2, 3, 4]"})
}

func TestBuildRegexFromSchema_ArrayPrefixItems(t *testing.T) {
	compileAndMatch(t, `{"type":"array","prefixItems":[{"type":"string"},{"type":"integer"}],"items":false}`,
		[]string{`["a", 1]`}, []string{`["a", 1, 2]`, "[1, 2]"})
}

func TestBuildRegexFromSchema_ObjectFewRequired(t *testing.T) {
	schemaJSON := `{
		"type": "object",
		"properties": {"name": {"type": "string"}, "age": {"type": "integer"}},
		"required": ["name", "age"],
		"additionalProperties": false
	}`
	compileAndMatch(t, schemaJSON,
		[]string{`{"name": "a", "age": 1}`, `{"age": 1, "name": "a"}`},
		[]string{`{"name": "a"}`, `{}`})
}

func TestBuildRegexFromSchema_ObjectOptionalProperty(t *testing.T) {
	schemaJSON := `{
		"type": "object",
		"properties": {"name": {"type": "string"}, "nickname": {"type": "string"}},
		"required": ["name"],
		"additionalProperties": false
	}`
	compileAndMatch(t, schemaJSON,
		[]string{`{"name": "a"}`, `{"name": "a", "nickname": "b"}`},
		[]string{`{"nickname": "b"}`})
}

func TestBuildRegexFromSchema_ObjectManyRequired(t *testing.T) {
	schemaJSON := `{
		"type": "object",
		"properties": {
			"a": {"type": "integer"}, "b": {"type": "integer"}, "c": {"type": "integer"},
			"d": {"type": "integer"}, "e": {"type": "integer"}, "f": {"type": "integer"},
			"g": {"type": "integer"}
		},
		"required": ["a", "b", "c", "d", "e", "f", "g"],
		"additionalProperties": false
	}`
	rx := compileAndMatch(t, schemaJSON,
		[]string{`{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6, "g": 7}`},
		nil)
	assert.NotEmpty(t, rx)
}

func TestBuildRegexFromSchema_Ref(t *testing.T) {
	schemaJSON := `{
		"type": "object",
		"properties": {"self": {"$ref": "#/definitions/leaf"}},
		"required": ["self"],
		"definitions": {"leaf": {"type": "integer"}}
	}`
	compileAndMatch(t, schemaJSON, []string{`{"self": 1}`}, []string{`{"self": "x"}`})
}

func TestBuildRegexFromSchema_RecursiveRefRejected(t *testing.T) {
	schemaJSON := `{
		"type": "object",
		"properties": {"child": {"$ref": "#"}},
		"required": ["child"]
	}`
	_, err := BuildRegexFromSchema([]byte(schemaJSON), Options{})
	require.Error(t, err)
	var recErr *RecursionUnsupportedError
	assert.ErrorAs(t, err, &recErr)
}

func TestBuildRegexFromSchema_BoolSchemaFalseRejected(t *testing.T) {
	_, err := BuildRegexFromSchema([]byte(`false`), Options{})
	require.Error(t, err)
	var unsupErr *UnsupportedSchemaError
	assert.ErrorAs(t, err, &unsupErr)
}

func TestBuildRegexFromSchema_MultiTypeArrayRejected(t *testing.T) {
	_, err := BuildRegexFromSchema([]byte(`{"type":["string","null"]}`), Options{})
	require.Error(t, err)
	var unsupErr *UnsupportedSchemaError
	assert.ErrorAs(t, err, &unsupErr)
}

func TestBuildRegexFromSchema_AllOfObjectsMerge(t *testing.T) {
	schemaJSON := `{
		"allOf": [
			{"type": "object", "properties": {"a": {"type": "integer"}}, "required": ["a"]},
			{"type": "object", "properties": {"b": {"type": "integer"}}, "required": ["b"]}
		]
	}`
	compileAndMatch(t, schemaJSON, []string{`{"a": 1, "b": 2}`}, nil)
}

func TestBuildRegexFromSchema_AllOfNonObjectUnsupported(t *testing.T) {
	schemaJSON := `{"allOf": [{"type": "integer"}, {"type": "string"}]}`
	_, err := BuildRegexFromSchema([]byte(schemaJSON), Options{})
	require.Error(t, err)
	var unsupErr *UnsupportedSchemaError
	assert.ErrorAs(t, err, &unsupErr)
}

func TestBuildRegexFromSchema_StringFormat(t *testing.T) {
	compileAndMatch(t, `{"type":"string","format":"uuid"}`,
		[]string{`"550e8400-e29b-41d4-a716-446655440000"`}, []string{`"not-a-uuid"`})
}

func TestBuildRegexFromSchema_StringLength(t *testing.T) {
	compileAndMatch(t, `{"type":"string","minLength":2,"maxLength":4}`,
		[]string{`"ab"`, `"abcd"`}, []string{`"a"`, `"abcde"`})
}

func TestBuildRegexFromSchema_CustomWhitespace(t *testing.T) {
	rx, err := BuildRegexFromSchema([]byte(`{"type":"boolean"}`), Options{WhitespacePattern: " ?"})
	require.NoError(t, err)
	assert.Equal(t, `(true|false)`, rx)
}
