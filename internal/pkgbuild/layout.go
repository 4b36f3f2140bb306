package pkgbuild

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/anda/internal/manifest"
)

// DefaultOutputRoot is the directory, relative to the working directory, that
// receives every package artifact.
const DefaultOutputRoot = "anda-build"

// Layout resolves output directories for package builds.
type Layout struct {
	Workdir string
	Root    string
}

// RootDir is the directory holding every kind: <workdir>/<root>.
func (l Layout) RootDir() string {
	root := l.Root
	if root == "" {
		root = DefaultOutputRoot
	}
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(l.Workdir, root)
}

// Dir is the output directory for a package kind: <workdir>/<root>/<kind>.
func (l Layout) Dir(kind manifest.TargetKind) string {
	return filepath.Join(l.RootDir(), string(kind))
}

// SourceDir receives source packages, under the rpm output directory.
func (l Layout) SourceDir() string {
	return filepath.Join(l.Dir(manifest.KindRPM), "src")
}

// Clean removes the output root and everything below it. A missing root is
// not an error. A root that resolves to the working directory or the
// filesystem root is refused.
func (l Layout) Clean() (string, error) {
	root := filepath.Clean(l.RootDir())
	workdir := filepath.Clean(l.Workdir)
	if abs, err := filepath.Abs(workdir); err == nil {
		workdir = abs
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if root == workdir || root == filepath.Dir(root) {
		return root, fmt.Errorf("refusing to remove output root %q", root)
	}
	if err := os.RemoveAll(root); err != nil {
		return root, fmt.Errorf("failed to remove output root: %w", err)
	}
	return root, nil
}
