package revision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commit(t *testing.T, repo *git.Repository, dir string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anda.hcl"), []byte("project \"x\" {}\n"), 0o644))
	_, err = wt.Add("anda.hcl")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(0, 0)},
	})
	require.NoError(t, err)
	return hash
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	info, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, Info{}, info, "repository without commits")

	hash := commit(t, repo, dir)
	sub := filepath.Join(dir, "pkg", "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	info, err = Detect(sub)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), info.Commit)
	assert.Equal(t, "master", info.Branch)
	assert.Len(t, info.Short(), 8)
}

func TestDetect_DetachedHead(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	hash := commit(t, repo, dir)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: hash}))

	info, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), info.Commit)
	assert.Empty(t, info.Branch)
}

func TestDetect_NotARepository(t *testing.T) {
	info, err := Detect(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Info{}, info)
}
