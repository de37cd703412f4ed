package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelOfSameKind(t *testing.T) {
	err := NotFound("ticket %s not found", "t-1")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "NotFound: ticket t-1 not found", err.Error())
}

func TestKindOfWrappedError(t *testing.T) {
	base := Conflict("workflow %s already confirmed", "w-1")
	wrapped := fmt.Errorf("save transition: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "workflow w-1 already confirmed", MessageOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrConflict))
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "boom", MessageOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, cause, "load ticket")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Internal: load ticket: connection reset", err.Error())
}
