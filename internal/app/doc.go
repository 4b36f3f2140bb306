// Package app wires the loader, scheduler, package builders and servers into
// the build, validate and serve workflows, independent of the CLI that
// configures it.
package app
