package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	anderr "github.com/vk/anda/internal/errors"
	"github.com/vk/anda/internal/hcl_adapter"
	"github.com/vk/anda/internal/manifest"
)

// StageSeparator splits a "project::stage" target.
const StageSeparator = "::"

// load reads and validates the manifest and returns the selected projects in
// name order.
func (a *App) load(ctx context.Context) ([]*manifest.Project, error) {
	dotenv := a.config.DotenvPath
	if dotenv != "" && !filepath.IsAbs(dotenv) {
		dotenv = filepath.Join(a.config.Workdir, dotenv)
	}
	env, err := hcl_adapter.Environment(dotenv)
	if err != nil {
		return nil, err
	}

	manifestPath := a.config.ManifestPath
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(a.config.Workdir, manifestPath)
	}
	projects, err := hcl_adapter.NewLoader(env).Load(ctx, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("no projects found in %s", manifestPath)
	}
	if err := manifest.ValidateAll(projects); err != nil {
		return nil, err
	}
	return Select(projects, a.config.Targets)
}

// Select resolves targets against projects. A target is a project name, an
// alias, or "project::stage" for one stage and its dependencies.
func Select(projects map[string]*manifest.Project, targets []string) ([]*manifest.Project, error) {
	if len(targets) == 0 {
		names := make([]string, 0, len(projects))
		for name := range projects {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]*manifest.Project, 0, len(names))
		for _, name := range names {
			out = append(out, projects[name])
		}
		return out, nil
	}

	var out []*manifest.Project
	seen := make(map[string]bool)
	for _, target := range targets {
		name, stage, scoped := strings.Cut(target, StageSeparator)
		p := find(projects, name)
		if p == nil {
			return nil, anderr.Usage(fmt.Errorf("unknown project %q", name))
		}
		if scoped {
			sp, err := p.Scoped(stage)
			if err != nil {
				return nil, anderr.Usage(err)
			}
			p = sp
		}
		if seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, p)
	}
	return out, nil
}

func find(projects map[string]*manifest.Project, name string) *manifest.Project {
	if p, ok := projects[name]; ok {
		return p
	}
	// Aliases are checked in name order so the match is stable.
	names := make([]string, 0, len(projects))
	for n := range projects {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if projects[n].Matches(name) {
			return projects[n]
		}
	}
	return nil
}
