// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package manifest

// DefaultImage is the container image stages run in when neither the stage
// nor its project names one.
const DefaultImage = "fedora:latest"

// Project is one buildable unit of a manifest.
type Project struct {
	Name string
	// Image is the project-wide default container image for stages.
	Image string
	// Env is substituted into stage commands. Keys are unique.
	Env map[string]string
	// Labels are free-form metadata passed through to reports.
	Labels map[string]string
	// Arches restricts the architectures the project is built for. Empty means all.
	Arches []string
	// Aliases are alternate names a project can be selected by.
	Aliases []string

	// Stages keeps declaration order.
	Stages []*Stage
	// Rollback maps a stage name to the commands that compensate for its failure.
	Rollback map[string]*RollbackStage
	// Target is nil when the project produces no package.
	Target PackageTarget
}

// Stage is a named unit of work with explicit dependencies.
type Stage struct {
	Name     string
	Commands []string
	// Depends has set semantics; order is kept only for stable diagnostics.
	Depends []string
	// Image overrides Project.Image for this stage when set.
	Image string
}

// RollbackStage holds compensating commands for a failed stage. It is not part
// of the dependency graph.
type RollbackStage struct {
	Commands []string
}

// IsRoot reports whether the stage may start immediately.
func (s *Stage) IsRoot() bool { return len(s.Depends) == 0 }

// Stage looks up a stage by name.
func (p *Project) Stage(name string) (*Stage, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// RollbackFor returns the rollback stage keyed by the given stage name, if any.
func (p *Project) RollbackFor(stage string) (*RollbackStage, bool) {
	if p.Rollback == nil {
		return nil, false
	}
	rb, ok := p.Rollback[stage]
	return rb, ok
}

// ImageFor resolves the container image for a stage.
func (p *Project) ImageFor(s *Stage) string {
	switch {
	case s != nil && s.Image != "":
		return s.Image
	case p.Image != "":
		return p.Image
	default:
		return DefaultImage
	}
}

// Matches reports whether name selects this project, either directly or
// through one of its aliases.
func (p *Project) Matches(name string) bool {
	if p.Name == name {
		return true
	}
	for _, a := range p.Aliases {
		if a == name {
			return true
		}
	}
	return false
}

// PackageStageName is the name of the synthetic stage that builds the
// project's package target. It depends on every stage nothing else depends on.
func (p *Project) PackageStageName() string {
	if p.Target == nil {
		return ""
	}
	return PackageStagePrefix + string(p.Target.Kind())
}
