// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package manifest is the typed, format-agnostic representation of a build
// manifest: named projects, each owning an ordered stage graph, optional
// rollback stages, at most one package target and an environment map.
//
// Values in this package are pure data. They are built once by a loader (see
// hcl_adapter) and are read-only afterwards. The only behaviour offered here
// is Validate, which a loader is expected to run before handing a project to
// the scheduler. Validate is a second line of defence; the scheduler refuses
// to run a project that does not pass it.
package manifest
