package errors

import (
	stderrs "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil is nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("plain error gets code and message", func(t *testing.T) {
		base := stderrs.New("boom")
		err := Wrap(base, CodeManifestReadError, "read failed")

		assert.Equal(t, CodeManifestReadError, err.Code)
		assert.ErrorIs(t, err, base)
		assert.Contains(t, err.Error(), "read failed")
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("existing AppError passes through unchanged", func(t *testing.T) {
		orig := New(CodeResourceNotFound, "missing")
		err := Wrap(orig, CodeInternal, "outer")

		assert.Same(t, orig, err, "the original code must survive layering")
	})
}

func TestIsAndGetCode(t *testing.T) {
	err := Newf(CodeResourceConflict, "conflict on %s", "deployment/api")

	assert.True(t, Is(err, CodeResourceConflict))
	assert.False(t, Is(err, CodeTimeout))
	assert.Equal(t, CodeResourceConflict, GetCode(err))
	assert.Equal(t, CodeUnknown, GetCode(stderrs.New("untyped")))
	assert.False(t, Is(nil, CodeInternal))
}

func TestGetUserFacingMessage(t *testing.T) {
	t.Run("user facing error", func(t *testing.T) {
		err := NewUserFacing(CodeConfigValidation, "bad config", "Fix the file.")

		msg, suggestion, ok := GetUserFacingMessage(err)
		require.True(t, ok)
		assert.Equal(t, "bad config", msg)
		assert.Equal(t, "Fix the file.", suggestion)
	})

	t.Run("nested user facing error found through wrapping", func(t *testing.T) {
		inner := WrapUserFacing(stderrs.New("dial tcp"), CodeClusterUnreachable,
			"control plane is unreachable", "Check connectivity.")
		outer := &AppError{Code: CodeFatalStage, Message: "stage failed", WrappedError: inner}

		msg, _, ok := GetUserFacingMessage(outer)
		require.True(t, ok)
		assert.Equal(t, "control plane is unreachable", msg)
	})

	t.Run("untyped error falls back", func(t *testing.T) {
		msg, _, ok := GetUserFacingMessage(stderrs.New("boom"))
		assert.False(t, ok)
		assert.NotEmpty(t, msg)
	})
}
