package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindClassification(t *testing.T) {
	err := New(KindNotFound, "record %s does not exist", "p1/borelog/b1")
	assert.True(t, IsNotFound(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindTransport))
	assert.Equal(t, "not_found: record p1/borelog/b1 does not exist", err.Error())
}

func TestWrapPreservesCauseAndKind(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(cause, KindTransport, "put object %s", "a/b")

	assert.True(t, IsKind(err, KindTransport))
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.Contains(t, err.Error(), "connection reset")

	// classification survives further fmt wrapping
	wrapped := fmt.Errorf("store: %w", err)
	assert.True(t, IsKind(wrapped, KindTransport))
}

func TestGetKindForeignError(t *testing.T) {
	assert.Equal(t, KindInternal, GetKind(stderrors.New("plain")))
}

func TestWithField(t *testing.T) {
	err := New(KindSchemaValidation, "row does not match schema").
		WithField("version_no", "abc", "not an integer").
		WithField("status", "", "Required field is missing or null")

	assert.Len(t, err.Fields, 2)
	assert.Equal(t, "version_no", err.Fields[0].Field)
	assert.Equal(t, "Required field is missing or null", err.Fields[1].Error)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:           404,
		KindAlreadyExists:      409,
		KindSchemaValidation:   400,
		KindIllegalTransition:  400,
		KindMalformedInput:     400,
		KindOverwriteForbidden: 400,
		KindTransport:          500,
		KindInternal:           500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "x")), "kind %s", kind)
	}
	assert.Equal(t, 500, HTTPStatus(stderrors.New("plain")))
}
