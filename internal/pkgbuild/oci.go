package pkgbuild

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/vk/anda/internal/command"
	"github.com/vk/anda/internal/manifest"
)

// ErrInvalidImageRef is returned for an image ref that does not parse.
var ErrInvalidImageRef = errors.New("invalid image reference")

// OCIRunner builds container images with podman.
type OCIRunner struct {
	Exec    command.Executor
	Workdir string
	Env     []string
	// Labels and BuildArgs are added to every image and win over the
	// target's own entries with the same key.
	Labels    map[string]string
	BuildArgs map[string]string
}

// Build validates every ref before building, so a bad tag never costs a build.
func (o *OCIRunner) Build(ctx context.Context, t *manifest.OCIImageTarget) ([]string, error) {
	if len(t.ImageRefs) == 0 {
		return nil, fmt.Errorf("%w: no image refs", ErrInvalidImageRef)
	}
	refs := make([]string, 0, len(t.ImageRefs))
	for _, raw := range t.ImageRefs {
		ref, err := name.ParseReference(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidImageRef, raw, err)
		}
		refs = append(refs, ref.Name())
	}

	contextDir := t.Context
	if contextDir == "" {
		contextDir = "."
	}
	argv := []string{"podman", "build", "-f", o.path(t.DockerfilePath)}
	for _, r := range refs {
		argv = append(argv, "-t", r)
	}
	argv = appendPairs(argv, "--label", t.Labels, o.Labels)
	argv = appendPairs(argv, "--build-arg", t.BuildArgs, o.BuildArgs)
	argv = append(argv, o.path(contextDir))

	if _, err := command.Check(ctx, o.Exec, command.Request{Argv: argv, Dir: o.Workdir, Env: o.Env}); err != nil {
		return nil, err
	}
	return refs, nil
}

func (o *OCIRunner) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Workdir, p)
}

// appendPairs adds flag key=value for the union of base and override, in key
// order.
func appendPairs(argv []string, flag string, base, override map[string]string) []string {
	merged := maps.Clone(base)
	if merged == nil {
		merged = make(map[string]string, len(override))
	}
	maps.Copy(merged, override)
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		argv = append(argv, flag, k+"="+merged[k])
	}
	return argv
}
