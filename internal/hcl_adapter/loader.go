package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/fsutil"
	"github.com/vk/anda/internal/manifest"
)

// DefaultManifest is the file looked up when no path is given.
const DefaultManifest = "anda.hcl"

// Loader reads HCL manifests into projects.
type Loader struct {
	env map[string]string
}

// NewLoader creates a loader whose manifests see env through env.NAME and
// env("NAME").
func NewLoader(env map[string]string) *Loader {
	return &Loader{env: env}
}

// Load parses every .hcl file under paths. Directories are searched
// recursively and missing paths are skipped. Project names must be unique
// across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (map[string]*manifest.Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := evalContext(l.env)
	projects := make(map[string]*manifest.Project)
	declared := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, pb := range root.Projects {
			if prev, ok := declared[pb.Name]; ok {
				return nil, fmt.Errorf("%s: project %q already declared in %s", file, pb.Name, prev)
			}
			p, err := translateProject(pb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			declared[pb.Name] = file
			projects[p.Name] = p
		}
	}

	logger.Debug("HCL loading complete.", "projects", len(projects))
	return projects, nil
}

func translateProject(pb *projectBlock) (*manifest.Project, error) {
	p := &manifest.Project{
		Name:    pb.Name,
		Image:   pb.Image,
		Env:     pb.Env,
		Labels:  pb.Labels,
		Arches:  pb.Arches,
		Aliases: pb.Aliases,
	}
	for _, sb := range pb.Stages {
		p.Stages = append(p.Stages, &manifest.Stage{
			Name:     sb.Name,
			Commands: sb.Commands,
			Depends:  sb.Depends,
			Image:    sb.Image,
		})
	}
	for _, rb := range pb.Rollbacks {
		if p.Rollback == nil {
			p.Rollback = make(map[string]*manifest.RollbackStage)
		}
		if _, dup := p.Rollback[rb.Stage]; dup {
			return nil, fmt.Errorf("project %q declares more than one rollback for stage %q", pb.Name, rb.Stage)
		}
		p.Rollback[rb.Stage] = &manifest.RollbackStage{Commands: rb.Commands}
	}

	if n := len(pb.RPM) + len(pb.Docker) + len(pb.Flatpak); n > 1 {
		return nil, fmt.Errorf("project %q declares %d package targets, at most one is allowed", pb.Name, n)
	}
	switch {
	case len(pb.RPM) == 1:
		r := pb.RPM[0]
		p.Target = &manifest.RPMTarget{
			SpecPath:   r.Spec,
			BuildDeps:  r.BuildDeps,
			PreScript:  r.PreScript,
			PostScript: r.PostScript,
			Macros:     r.Macros,
			With:       r.With,
			Without:    r.Without,
		}
	case len(pb.Docker) == 1:
		d := pb.Docker[0]
		p.Target = &manifest.OCIImageTarget{
			DockerfilePath: d.Dockerfile,
			ImageRefs:      d.Images,
			Context:        d.Context,
			Labels:         d.Labels,
			BuildArgs:      d.BuildArgs,
		}
	case len(pb.Flatpak) == 1:
		p.Target = &manifest.SandboxedAppTarget{ManifestPath: pb.Flatpak[0].Manifest}
	}
	return p, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			allFiles = append(allFiles, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return allFiles, nil
}
