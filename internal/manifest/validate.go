// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package manifest

import (
	"errors"
	"sort"
	"strings"

	"github.com/vk/anda/internal/dag"
)

// Validate checks a project's structural invariants: unique stage names,
// dependencies and rollbacks naming existing stages, and an acyclic depends
// relation. It returns nil or a *ValidationError describing the first problem
// found, in declaration order.
func Validate(p *Project) error {
	seen := make(map[string]bool, len(p.Stages))
	for _, s := range p.Stages {
		if strings.HasPrefix(s.Name, PackageStagePrefix) {
			return &ValidationError{Kind: ReservedStageName, Project: p.Name, Stage: s.Name}
		}
		if seen[s.Name] {
			return &ValidationError{Kind: DuplicateStageName, Project: p.Name, Stage: s.Name}
		}
		seen[s.Name] = true
	}

	for _, s := range p.Stages {
		for _, d := range s.Depends {
			if d == s.Name {
				return &ValidationError{Kind: CyclicDependency, Project: p.Name, Stage: s.Name, Cycle: []string{s.Name, s.Name}}
			}
			if !seen[d] {
				return &ValidationError{Kind: UnknownStageReference, Project: p.Name, Stage: s.Name, Reference: d}
			}
		}
	}

	for _, name := range sortedKeys(p.Rollback) {
		if !seen[name] {
			return &ValidationError{Kind: UnknownStageReference, Project: p.Name, Reference: name}
		}
	}

	if cycle := Graph(p).FindCycle(); cycle != nil {
		return &ValidationError{Kind: CyclicDependency, Project: p.Name, Stage: cycle[0], Cycle: cycle}
	}
	return nil
}

// ValidateAll validates every project, in name order, and joins the failures.
func ValidateAll(projects map[string]*Project) error {
	names := sortedKeys(projects)
	var errs []error
	for _, name := range names {
		if err := Validate(projects[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Graph builds the stage dependency graph of a project. Unknown references
// and self-edges are dropped; call Validate first to reject them.
func Graph(p *Project) *dag.Graph {
	g := dag.New()
	for _, s := range p.Stages {
		g.AddNode(s.Name)
	}
	for _, s := range p.Stages {
		for _, d := range s.Depends {
			_ = g.AddEdge(d, s.Name)
		}
	}
	return g
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
