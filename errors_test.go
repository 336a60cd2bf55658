package differ_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/differ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpError(t *testing.T) {
	t.Parallel()

	t.Run("message includes operation and path", func(t *testing.T) {
		t.Parallel()
		err := differ.OpError("stage", "main.go", differ.ErrConflict)
		assert.Equal(t, "stage main.go: conflict: target changed since diff", err.Error())
	})

	t.Run("message without a path", func(t *testing.T) {
		t.Parallel()
		err := differ.OpError("diff", "", differ.ErrNotFound)
		assert.Equal(t, "diff: not found", err.Error())
	})

	t.Run("sentinel survives wrapping", func(t *testing.T) {
		t.Parallel()
		err := differ.OpError("read", "f.txt", fmt.Errorf("git said no: %w", differ.ErrNotFound))
		assert.ErrorIs(t, err, differ.ErrNotFound)
		assert.NotErrorIs(t, err, differ.ErrConflict)
	})

	t.Run("operation error is inspectable", func(t *testing.T) {
		t.Parallel()
		err := differ.OpError("unstage", "a.go", differ.ErrPreconditionFailed)
		var oe *differ.OperationError
		require.True(t, errors.As(err, &oe))
		assert.Equal(t, "unstage", oe.Op)
		assert.Equal(t, "a.go", oe.Path)
	})
}
