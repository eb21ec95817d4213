package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorHidesUntypedErrors(t *testing.T) {
	appErr := FromError(errors.New("pq: connection refused"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "An unexpected error occurred", appErr.Message)
}

func TestCloneMatchesOriginal(t *testing.T) {
	clone := Clone(ErrTokenRevoked, "revoked")
	assert.True(t, errors.Is(clone, ErrTokenRevoked))
	assert.False(t, errors.Is(clone, ErrTokenExpired))
	assert.Equal(t, "revoked", clone.Message)
}

func TestPublicStripsInternalDetail(t *testing.T) {
	wrapped := Internal(errors.New("deadlock detected"), "failed to save user")
	public := Public(wrapped)
	assert.Equal(t, "An unexpected error occurred", public.Message)
	assert.Nil(t, public.Err)

	conflict := Public(ErrEmailTaken)
	assert.Equal(t, ErrEmailTaken.Message, conflict.Message)
	assert.Equal(t, http.StatusConflict, conflict.Status)
}
