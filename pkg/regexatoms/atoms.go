// Package regexatoms exports the named regex fragments shared by the schema
// compiler and by callers that want to constrain a single bare JSON primitive
// without going through a full schema document. Each constant's language is
// fixed: two implementations of this system must accept the same strings for
// the same atom, which is why these are tested against golden strings in
// atoms_test.go rather than left to whatever the schema compiler happens to emit.
package regexatoms

const (
	// BOOLEAN matches the two JSON boolean literals.
	BOOLEAN = `(true|false)`

	// NULL matches the JSON null literal.
	NULL = `null`

	// INTEGER matches an optionally-signed JSON integer with no leading zero
	// (other than the literal "0" itself).
	INTEGER = `(-)?(0|[1-9][0-9]*)`

	// NUMBER matches the full JSON number grammar: optional sign, integer part,
	// optional fractional part, optional exponent.
	NUMBER = `(-)?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?`

	// WHITESPACE is the default filler accepted between JSON structural tokens.
	// A schema's whitespace_pattern, when supplied, replaces this atom wherever
	// the compiler would otherwise emit it.
	WHITESPACE = `[ \t\n\r]*`

	// STRING_INNER matches the body of a JSON string, excluding the surrounding
	// quotes: any run of characters that are not an unescaped quote or
	// backslash, plus JSON's escape sequences (\", \\, \/, \b, \f, \n, \r, \t,
	// \uXXXX).
	STRING_INNER = `([^"\\\x00-\x1f]|\\["\\/bfnrt]|\\u[0-9a-fA-F]{4})*`

	// STRING matches a full quoted JSON string.
	STRING = `"` + STRING_INNER + `"`

	// DATE matches an RFC 3339 full-date (YYYY-MM-DD), quoted as a JSON string.
	DATE = `"[0-9]{4}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])"`

	// TIME matches an RFC 3339 partial-time with optional fractional seconds
	// and a mandatory UTC offset, quoted as a JSON string.
	TIME = `"([01][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9](\.[0-9]+)?(Z|[+-][01][0-9]:[0-5][0-9])"`

	// DATE_TIME matches an RFC 3339 date-time, quoted as a JSON string.
	DATE_TIME = `"[0-9]{4}-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])[Tt]([01][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9](\.[0-9]+)?(Z|z|[+-][01][0-9]:[0-5][0-9])"`

	// UUID matches a canonical hyphenated UUID, quoted as a JSON string.
	UUID = `"[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"`

	// EMAIL matches a conservative, widely-compatible email address, quoted as
	// a JSON string. It intentionally does not attempt full RFC 5322 coverage.
	EMAIL = `"[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+"`

	// URI matches a generic URI (scheme:hier-part), quoted as a JSON string.
	URI = `"[a-zA-Z][a-zA-Z0-9+.-]*:[^"\\\x00-\x1f]*"`
)
