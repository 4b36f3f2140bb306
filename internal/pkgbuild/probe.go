package pkgbuild

import (
	"path/filepath"
	"strings"
)

// PlaceholderMarker is the file name fragment the source package tool uses for
// a placeholder that lists unresolved build requirements instead of sources.
const PlaceholderMarker = "buildreqs.nosrc.rpm"

// Probe is the result of one dry-run source package build.
type Probe struct {
	CandidatePath string
	// Unresolved is true when CandidatePath is a placeholder and more build
	// dependencies must be installed before the real build can run.
	Unresolved bool
}

// ProbeOf classifies a path written by the source package tool.
func ProbeOf(path string) Probe {
	return Probe{
		CandidatePath: path,
		Unresolved:    strings.Contains(filepath.Base(path), PlaceholderMarker),
	}
}
