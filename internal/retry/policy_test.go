package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("always retrying stops at the bound", func(t *testing.T) {
		var calls, cleanups int
		p := DefaultPolicy().WithOnRetry(func(context.Context, int) error { cleanups++; return nil })

		n, err := p.Do(ctx, func(context.Context, int) (bool, error) { calls++; return true, nil })

		var ex *ExhaustedError
		require.ErrorAs(t, err, &ex)
		assert.Equal(t, 10, ex.Attempts)
		assert.Equal(t, 10, n)
		assert.Equal(t, 10, calls)
		assert.Equal(t, 9, cleanups, "no cleanup after the final attempt")
		assert.True(t, IsExhausted(err))
	})

	t.Run("succeeds on the third attempt", func(t *testing.T) {
		var cleaned []int
		p := Policy{MaxAttempts: 10, OnRetry: func(_ context.Context, a int) error { cleaned = append(cleaned, a); return nil }}

		n, err := p.Do(ctx, func(_ context.Context, a int) (bool, error) { return a < 3, nil })

		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []int{1, 2}, cleaned)
	})

	t.Run("errors are fatal immediately", func(t *testing.T) {
		boom := errors.New("boom")
		var calls int
		n, err := DefaultPolicy().Do(ctx, func(context.Context, int) (bool, error) { calls++; return true, boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, calls)
		assert.False(t, IsExhausted(err))
	})

	t.Run("cleanup failure stops the loop", func(t *testing.T) {
		p := DefaultPolicy().WithOnRetry(func(context.Context, int) error { return errors.New("rm failed") })
		n, err := p.Do(ctx, func(context.Context, int) (bool, error) { return true, nil })
		assert.ErrorContains(t, err, "cleanup after attempt 1 failed: rm failed")
		assert.Equal(t, 1, n)
	})

	t.Run("cancelled context stops before the next attempt", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		p := Policy{MaxAttempts: 5, Delay: time.Hour}
		n, err := p.Do(cctx, func(context.Context, int) (bool, error) { cancel(); return true, nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, n)
	})

	t.Run("invalid policy", func(t *testing.T) {
		_, err := Policy{}.Do(ctx, func(context.Context, int) (bool, error) { return false, nil })
		assert.ErrorContains(t, err, "max attempts must be >0")
		assert.Error(t, Policy{MaxAttempts: 1, Delay: -1}.Validate())
	})
}
