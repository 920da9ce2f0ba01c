package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndInspect(t *testing.T) {
	cause := errors.New("disk full")

	t.Run("wrap keeps the cause reachable", func(t *testing.T) {
		err := Wrap(cause, CodePersistence, "could not persist records")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.True(t, HasCode(err, CodePersistence))
		assert.Equal(t, CodePersistence, CodeOf(err))
		assert.Equal(t, "could not persist records", MessageOf(err))
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})

	t.Run("inner codes are found through outer wrappers", func(t *testing.T) {
		inner := New(CodeInvalidPhone, "invalid phone number")
		outer := Wrap(inner, CodeValidation, "invalid update request")
		assert.True(t, HasCode(outer, CodeInvalidPhone))
		assert.True(t, HasCode(outer, CodeValidation))
		assert.Equal(t, CodeValidation, CodeOf(outer))
	})

	t.Run("fmt wrapping is transparent", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeNotFound, "record not found"))
		assert.True(t, HasCode(err, CodeNotFound))
		assert.Equal(t, "record not found", MessageOf(err))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(cause))
		assert.False(t, HasCode(cause, CodeInternal))
		assert.Empty(t, MessageOf(cause))
	})
}
