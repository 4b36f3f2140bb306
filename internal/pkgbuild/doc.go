// Package pkgbuild produces the package target of a project: binary RPMs with
// bounded build dependency resolution, container images, and sandboxed
// application bundles. Builder is the entry point the scheduler calls for the
// synthetic package stage.
package pkgbuild
