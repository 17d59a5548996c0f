package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	withCode := &Error{Type: ErrorTypeAPI, Message: "rejected", Code: 400}
	assert.Equal(t, "api error (code 400): rejected", withCode.Error())

	noCode := New(ErrorTypePrecondition, "token missing")
	assert.Equal(t, "precondition error: token missing", noCode.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrorTypeListFetch, cause, "page at offset 100")

	assert.Equal(t, "page at offset 100: connection reset", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestTypeOfAndHasType(t *testing.T) {
	inner := &Error{Type: ErrorTypeNetwork, Message: "dial tcp"}
	outer := Wrap(ErrorTypeListFetch, inner, "fetch following")
	wrapped := fmt.Errorf("run: %w", outer)

	assert.Equal(t, ErrorTypeListFetch, TypeOf(wrapped))
	assert.True(t, HasType(wrapped, ErrorTypeListFetch))
	assert.True(t, HasType(wrapped, ErrorTypeNetwork))
	assert.False(t, HasType(wrapped, ErrorTypeStall))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeAuth, false},
		{ErrorTypeAPI, false},
		{ErrorTypePrecondition, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errorType))
		})
	}
}

func TestFromStatus(t *testing.T) {
	assert.Equal(t, ErrorTypeAuth, FromStatus(401))
	assert.Equal(t, ErrorTypeAuth, FromStatus(403))
	assert.Equal(t, ErrorTypeNotFound, FromStatus(404))
	assert.Equal(t, ErrorTypeRateLimit, FromStatus(429))
	assert.Equal(t, ErrorTypeServerError, FromStatus(502))
	assert.Equal(t, ErrorTypeAPI, FromStatus(400))
}
