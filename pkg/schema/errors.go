package schema

import "fmt"

// InvalidSchemaError reports that the input was not valid JSON or violated a
// structural rule the compiler depends on (e.g. "type" present but not a
// string or array of strings).
type InvalidSchemaError struct{ Detail string }

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("schema: invalid schema: %s", e.Detail)
}

// UnsupportedSchemaError reports a construct that has no regular-language
// encoding, e.g. an allOf whose branches cannot be merged into one constraint
// set.
type UnsupportedSchemaError struct{ Reason string }

func (e *UnsupportedSchemaError) Error() string {
	return fmt.Sprintf("schema: unsupported schema construct: %s", e.Reason)
}

// RecursionUnsupportedError reports a cyclic $ref: regular languages cannot
// express recursive structure.
type RecursionUnsupportedError struct{ Ref string }

func (e *RecursionUnsupportedError) Error() string {
	return fmt.Sprintf("schema: recursive $ref unsupported: %s", e.Ref)
}

func invalid(format string, args ...interface{}) error {
	return &InvalidSchemaError{Detail: fmt.Sprintf(format, args...)}
}

func unsupported(format string, args ...interface{}) error {
	return &UnsupportedSchemaError{Reason: fmt.Sprintf(format, args...)}
}
