package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/anda/internal/ctxlog"
)

func TestShell_Run(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	sh := NewShell(dir)

	t.Run("captures output and uses request env", func(t *testing.T) {
		res, err := sh.Run(ctx, Request{Command: "echo $GREETING", Env: []string{"GREETING=hi"}})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "hi\n", string(res.Output))
	})

	t.Run("non-zero exit is a result, not an error", func(t *testing.T) {
		res, err := sh.Run(ctx, Request{Command: "echo oops >&2; exit 3"})
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Contains(t, string(res.Output), "oops")
	})

	t.Run("runs in the default directory", func(t *testing.T) {
		_, err := sh.Run(ctx, Request{Command: "touch marker"})
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "marker"))
	})

	t.Run("argv requests skip the shell", func(t *testing.T) {
		res, err := sh.Run(ctx, Request{Argv: []string{"echo", "$NOT_EXPANDED"}})
		require.NoError(t, err)
		assert.Equal(t, "$NOT_EXPANDED\n", string(res.Output))
	})

	t.Run("missing program is an error", func(t *testing.T) {
		_, err := sh.Run(ctx, Request{Argv: []string{filepath.Join(dir, "does-not-exist")}})
		assert.Error(t, err)
	})

	t.Run("empty request is an error", func(t *testing.T) {
		_, err := sh.Run(ctx, Request{})
		assert.Error(t, err)
	})

	t.Run("isolated env drops the process environment", func(t *testing.T) {
		t.Setenv("ANDA_LEAK", "leaked")
		isolated := &Shell{Dir: dir}
		res, err := isolated.Run(ctx, Request{Command: "echo \"[$ANDA_LEAK]\""})
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(res.Output))
	})
}

func TestCheck(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())

	t.Run("non-zero exit becomes ExitError", func(t *testing.T) {
		exec := ExecutorFunc(func(context.Context, Request) (Result, error) {
			return Result{ExitCode: 2, Output: []byte("line1\nline2\n")}, nil
		})
		_, err := Check(ctx, exec, Request{Command: "make"})

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.Equal(t, `command "make" exited with status 2: line1 | line2`, err.Error())
	})

	t.Run("start failure is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		exec := ExecutorFunc(func(context.Context, Request) (Result, error) { return Result{}, boom })
		_, err := Check(ctx, exec, Request{Argv: []string{"rpmbuild", "-br"}})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "rpmbuild -br")
	})

	t.Run("success passes through", func(t *testing.T) {
		exec := ExecutorFunc(func(context.Context, Request) (Result, error) { return Result{Output: []byte("ok")}, nil })
		res, err := Check(ctx, exec, Request{Command: "true"})
		require.NoError(t, err)
		assert.Equal(t, "ok", string(res.Output))
	})
}

func TestMain(m *testing.M) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		os.Exit(0)
	}
	os.Exit(m.Run())
}
