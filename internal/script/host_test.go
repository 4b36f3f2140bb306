package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession(t *testing.T) {
	root := t.TempDir()
	s, err := NewSession(root)
	require.NoError(t, err)

	require.NoError(t, s.WriteFile("pkg.spec", "Version: 1.0\nRelease: 1\n"))

	n, err := s.Replace("pkg.spec", "1.0", "1.1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	content, err := s.ReadFile(filepath.Join(root, "pkg.spec"))
	require.NoError(t, err)
	assert.Equal(t, "Version: 1.1\nRelease: 1\n", content)

	n, err = s.Replace("pkg.spec", "absent", "x")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Replace("pkg.spec", "", "x")
	assert.Error(t, err)

	for _, bad := range []string{"../escape", "/etc/passwd", "a/../../b"} {
		_, err := s.ReadFile(bad)
		assert.ErrorIs(t, err, ErrOutsideRoot, bad)
		assert.ErrorIs(t, s.WriteFile(bad, "x"), ErrOutsideRoot, bad)
	}
}

func TestRunHooks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg.spec"), []byte("Version: 1\n"), 0o644))

	t.Run("hooks run in order", func(t *testing.T) {
		var order []int
		hooks := []Hook{
			HookFunc(func(context.Context, Host) error { order = append(order, 1); return nil }),
			HookFunc(func(_ context.Context, h Host) error {
				order = append(order, 2)
				_, err := h.Replace("pkg.spec", "1", "2")
				return err
			}),
		}
		require.NoError(t, RunHooks(context.Background(), root, hooks))
		assert.Equal(t, []int{1, 2}, order)
		data, _ := os.ReadFile(filepath.Join(root, "pkg.spec"))
		assert.Equal(t, "Version: 2\n", string(data))
	})

	t.Run("terminate stops the chain", func(t *testing.T) {
		ran := false
		hooks := []Hook{
			HookFunc(func(_ context.Context, h Host) error { h.Terminate("already up to date"); return nil }),
			HookFunc(func(context.Context, Host) error { ran = true; return nil }),
		}
		err := RunHooks(context.Background(), root, hooks)
		var te *TerminatedError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "already up to date", te.Reason)
		assert.False(t, ran)
	})

	t.Run("hook error is wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		err := RunHooks(context.Background(), root, []Hook{HookFunc(func(context.Context, Host) error { return boom })})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no hooks is a no-op", func(t *testing.T) {
		assert.NoError(t, RunHooks(context.Background(), "/nonexistent", nil))
	})
}
