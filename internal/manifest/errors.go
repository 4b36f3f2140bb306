// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationKind classifies a ValidationError.
type ValidationKind int

const (
	CyclicDependency ValidationKind = iota + 1
	UnknownStageReference
	DuplicateStageName
	// ReservedStageName marks a declared stage whose name starts with
	// PackageStagePrefix.
	ReservedStageName
)

func (k ValidationKind) String() string {
	switch k {
	case CyclicDependency:
		return "cyclic_dependency"
	case UnknownStageReference:
		return "unknown_stage_reference"
	case DuplicateStageName:
		return "duplicate_stage_name"
	case ReservedStageName:
		return "reserved_stage_name"
	default:
		return "unknown"
	}
}

// ValidationError reports a structurally invalid project.
type ValidationError struct {
	Kind    ValidationKind
	Project string
	// Stage is the offending stage. For UnknownStageReference it is the stage
	// holding the reference, or empty when a rollback block holds it.
	Stage string
	// Reference is the unknown name for UnknownStageReference.
	Reference string
	// Cycle is the ordered cycle for CyclicDependency, first element repeated last.
	Cycle []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case CyclicDependency:
		return fmt.Sprintf("project %q: cyclic stage dependency: %s", e.Project, strings.Join(e.Cycle, " -> "))
	case UnknownStageReference:
		if e.Stage == "" {
			return fmt.Sprintf("project %q: rollback references unknown stage %q", e.Project, e.Reference)
		}
		return fmt.Sprintf("project %q: stage %q depends on unknown stage %q", e.Project, e.Stage, e.Reference)
	case DuplicateStageName:
		return fmt.Sprintf("project %q: duplicate stage name %q", e.Project, e.Stage)
	case ReservedStageName:
		return fmt.Sprintf("project %q: stage name %q uses reserved prefix %q", e.Project, e.Stage, PackageStagePrefix)
	default:
		return fmt.Sprintf("project %q: invalid manifest", e.Project)
	}
}

// IsKind reports whether err, or any error it wraps or joins, is a
// ValidationError of the given kind.
func IsKind(err error, kind ValidationKind) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *ValidationError:
		return e.Kind == kind
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsKind(inner, kind) {
				return true
			}
		}
		return false
	}
	return IsKind(errors.Unwrap(err), kind)
}
