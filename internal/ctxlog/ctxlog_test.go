package ctxlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("returns the embedded logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := WithLogger(context.Background(), logger)

		FromContext(ctx).Info("hello", Stage("build"))

		assert.Contains(t, buf.String(), "stage=build")
	})

	t.Run("falls back to the default logger", func(t *testing.T) {
		require.NotPanics(t, func() { FromContext(context.Background()) })
		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("discard logger is usable", func(t *testing.T) {
		ctx := Discard(context.Background())
		require.NotPanics(t, func() { FromContext(ctx).Error("ignored") })
	})
}

func TestErrorAttr(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
}
