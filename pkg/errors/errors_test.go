package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	tests := []struct {
		code Code
		want    Metadata
	}{
		{CodeValidation, meta(http.StatusBadRequest, "validation failed", false, true)},
		{CodeUnauthorized, meta(http.StatusUnauthorized, "authentication required", false, false)},
		{CodeForbidden, meta(http.StatusForbidden, "access denied", false, false)},
		{CodeNotFound, meta(http.StatusNotFound, "resource not found", false, false)},
		{CodeStateConflict, meta(http.StatusUnprocessableEntity, "state transition disallowed", false, true)},
		{CodeIdempotency, meta(http.StatusConflict, "idempotency key reused", false, true)},
		{CodeRateLimit, meta(http.StatusTooManyRequests, "rate limit exceeded", false, false)},
		{CodeDependency, meta(http.StatusServiceUnavailable, "dependency unavailable", true, true)},
		{CodeConcurrency, meta(http.StatusConflict, "resource busy, retry the request", true, true)},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, MetadataFor(tt.code))
		})
	}

	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestConstructorsKeepCodeMessageAndCause(t *testing.T) {
	e := New(CodeValidation, "quantity must be positive")
	assert.Equal(t, CodeValidation, e.Code())
	assert.Equal(t, "quantity must be positive", e.Message())
	assert.Nil(t, e.Details())
	assert.Equal(t, "VALIDATION_ERROR: quantity must be positive", e.Error())

	e.WithDetails(map[string]any{"field": "quantity"})
	assert.Equal(t, map[string]any{"field": "quantity"}, e.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "insert vendor")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())

	assert.Nil(t, Wrap(CodeConflict, nil, "noop").Unwrap())
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Empty(t, e.Error())
	assert.Nil(t, e.WithDetails("x"))
	assert.Nil(t, As(nil))
}

func TestChainHelpers(t *testing.T) {
	outer := fmt.Errorf("deduct: %w", New(CodeConcurrency, "item busy"))

	require.NotNil(t, As(outer))
	assert.True(t, IsCode(outer, CodeConcurrency))
	assert.False(t, IsCode(outer, CodeNotFound))
	assert.True(t, IsRetryable(outer))
	assert.False(t, IsRetryable(New(CodeValidation, "bad")))
	assert.False(t, IsRetryable(stdErrors.New("plain")))
}

func TestEnsure(t *testing.T) {
	assert.NoError(t, Ensure(CodeDependency, nil, "load item"))

	notFound := fmt.Errorf("repo: %w", New(CodeNotFound, "item not found"))
	assert.Same(t, notFound, Ensure(CodeDependency, notFound, "load item"))

	raw := stdErrors.New("driver: bad connection")
	got := Ensure(CodeDependency, raw, "load item")
	assert.True(t, IsCode(got, CodeDependency))
	assert.ErrorIs(t, got, raw)
}
