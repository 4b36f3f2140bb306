// Package revision reads the commit and branch of the working tree a build
// runs in. They feed the COMMIT_ID and BRANCH stage variables.
package revision

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info describes HEAD. Branch is empty for a detached HEAD.
type Info struct {
	Commit string
	Branch string
}

// Short returns the first 8 characters of the commit hash.
func (i Info) Short() string {
	if len(i.Commit) > 8 {
		return i.Commit[:8]
	}
	return i.Commit
}

// Detect opens the repository containing dir, searching parent directories.
// A directory outside any repository, or a repository without commits, yields
// an empty Info and no error.
func Detect(dir string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	info := Info{Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}
	return info, nil
}
