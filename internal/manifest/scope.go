// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package manifest

import "fmt"

// Scoped returns a copy of the project restricted to one stage and its
// transitive dependencies. Naming the package stage keeps every stage and the
// target. The package target is dropped otherwise.
func (p *Project) Scoped(stage string) (*Project, error) {
	if stage == p.PackageStageName() && stage != "" {
		return p, nil
	}
	if _, ok := p.Stage(stage); !ok {
		return nil, &ValidationError{Kind: UnknownStageReference, Project: p.Name, Reference: stage}
	}

	g := Graph(p)
	if c := g.FindCycle(); c != nil {
		return nil, &ValidationError{Kind: CyclicDependency, Project: p.Name, Stage: c[0], Cycle: c}
	}
	ancestors, err := g.Ancestors(stage)
	if err != nil {
		return nil, fmt.Errorf("failed to scope project %q: %w", p.Name, err)
	}
	keep := map[string]bool{stage: true}
	for _, a := range ancestors {
		keep[a] = true
	}

	out := *p
	out.Target = nil
	out.Stages = nil
	out.Rollback = make(map[string]*RollbackStage)
	for _, s := range p.Stages {
		if keep[s.Name] {
			out.Stages = append(out.Stages, s)
			if rb, ok := p.Rollback[s.Name]; ok {
				out.Rollback[s.Name] = rb
			}
		}
	}
	return &out, nil
}
