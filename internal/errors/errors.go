// Package errors provides the structured error type used across the storage
// engine, classifying failures by kind so that callers (and the dispatcher)
// can map them to behavior without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a storage-engine error.
type Kind string

const (
	// KindNotFound covers absent records, versions, and objects.
	KindNotFound Kind = "not_found"

	// KindAlreadyExists signals create_record against an existing record.
	KindAlreadyExists Kind = "already_exists"

	// KindOverwriteForbidden signals a guarded write against an existing
	// data-file key. Surfaces concurrent update collisions.
	KindOverwriteForbidden Kind = "overwrite_forbidden"

	// KindSchemaValidation signals rows that do not conform to a schema.
	// Carries per-field diagnostics.
	KindSchemaValidation Kind = "schema_validation"

	// KindIllegalTransition signals an approve/reject against a state that
	// forbids it.
	KindIllegalTransition Kind = "illegal_transition"

	// KindMalformedInput signals undetectable headers, broken XLSX parts,
	// or unparseable CSV.
	KindMalformedInput Kind = "malformed_input"

	// KindTransport signals an object-store failure that is not a clean
	// not-found. Propagated unchanged.
	KindTransport Kind = "transport"

	// KindInternal is the fallback classification.
	KindInternal Kind = "internal"
)

// FieldError describes one offending field in a schema-validation failure.
type FieldError struct {
	Field string `json:"field"`
	Value string `json:"value,omitempty"`
	Error string `json:"error"`
}

// Error is the structured error carried through the engine.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Fields  []FieldError
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithField appends a field diagnostic and returns the error for chaining.
func (e *Error) WithField(field, value, msg string) *Error {
	e.Fields = append(e.Fields, FieldError{Field: field, Value: value, Error: msg})
	return e
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping a cause.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// GetKind extracts the Kind from err, or KindInternal for foreign errors.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// IsNotFound reports whether err is a clean not-found.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// HTTPStatus maps an error to the dispatcher's status code.
// NotFound is 404, AlreadyExists 409, the validation/state/input kinds 400,
// everything else 500.
func HTTPStatus(err error) int {
	switch GetKind(err) {
	case KindNotFound:
		return 404
	case KindAlreadyExists:
		return 409
	case KindSchemaValidation, KindIllegalTransition, KindMalformedInput, KindOverwriteForbidden:
		return 400
	default:
		return 500
	}
}
