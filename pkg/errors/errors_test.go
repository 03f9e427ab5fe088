package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorNormalisesUnknownErrors(t *testing.T) {
	appErr := FromError(stdErrors.New("pq: connection refused"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
}

func TestCloneKeepsCodeAndMatchesSentinel(t *testing.T) {
	cloned := Clone(ErrNotFound, "role not found")
	assert.Equal(t, "role not found", cloned.Message)
	assert.True(t, stdErrors.Is(cloned, ErrNotFound))
	assert.False(t, stdErrors.Is(cloned, ErrConflict))
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestWrapUnwraps(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Internal(cause, "failed to load user")
	assert.True(t, stdErrors.Is(wrapped, cause))
	assert.Contains(t, wrapped.Error(), "boom")
}
