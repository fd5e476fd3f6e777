package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	err := NewError(ErrNodeNotFound, "node missing")
	assert.Equal(t, "[NODE_NOT_FOUND] node missing", err.Error())

	cause := errors.New("backend down")
	err = NewError(ErrBackendFailure, "read failed").WithCause(cause)
	assert.Contains(t, err.Error(), "backend down")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_Builders(t *testing.T) {
	t.Parallel()

	err := Errorf(ErrMissingSourceImage, "checked %d candidates", 3).
		WithRetryable(true).
		WithNodeID("n1")
	assert.Equal(t, ErrMissingSourceImage, err.Code)
	assert.Equal(t, "checked 3 candidates", err.Message)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "n1", err.NodeID)
}

func TestIsUserCorrectable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUserCorrectable(NewError(ErrNoPromptAvailable, "")))
	assert.True(t, IsUserCorrectable(NewError(ErrMissingSourceImage, "")))
	assert.True(t, IsUserCorrectable(NewError(ErrUnknownAgent, "")))
	assert.False(t, IsUserCorrectable(NewError(ErrSyncUnavailable, "")))
	assert.False(t, IsUserCorrectable(errors.New("plain")))
}

func TestGetErrorCode_PlainError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
