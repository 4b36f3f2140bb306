// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package manifest

// PackageStagePrefix is reserved for synthetic package stages and may not
// start a user-declared stage name.
const PackageStagePrefix = "package:"

// TargetKind names a package target variant. It doubles as the output
// directory name under the build output root.
type TargetKind string

const (
	KindRPM          TargetKind = "rpm"
	KindOCIImage     TargetKind = "oci"
	KindSandboxedApp TargetKind = "flatpak"
)

// TargetKinds lists every kind in output directory order.
var TargetKinds = []TargetKind{KindRPM, KindOCIImage, KindSandboxedApp}

// PackageTarget is a closed set of package variants. Only types in this
// package implement it.
type PackageTarget interface {
	Kind() TargetKind
	isPackageTarget()
}

// RPMTarget builds a binary RPM from a spec file.
type RPMTarget struct {
	SpecPath  string
	BuildDeps []string
	// PreScript runs before the source package probe, PostScript after the
	// final build succeeded.
	PreScript  []string
	PostScript []string
	// Macros are passed to the build tool as --define "key value".
	Macros  map[string]string
	With    []string
	Without []string
}

// OCIImageTarget builds a container image and tags it with every ref.
type OCIImageTarget struct {
	DockerfilePath string
	ImageRefs      []string
	// Context is the build context directory; defaults to the working directory.
	Context string
	// Labels and BuildArgs are passed to the build as --label and --build-arg.
	Labels    map[string]string
	BuildArgs map[string]string
}

// SandboxedAppTarget builds a sandboxed desktop application bundle.
type SandboxedAppTarget struct {
	ManifestPath string
}

func (*RPMTarget) Kind() TargetKind          { return KindRPM }
func (*OCIImageTarget) Kind() TargetKind     { return KindOCIImage }
func (*SandboxedAppTarget) Kind() TargetKind { return KindSandboxedApp }

func (*RPMTarget) isPackageTarget()          {}
func (*OCIImageTarget) isPackageTarget()     {}
func (*SandboxedAppTarget) isPackageTarget() {}
