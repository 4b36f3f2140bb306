// Package metrics defines the observability hooks of a build run and their
// Prometheus implementation. Callers depend on Recorder only; NoopRecorder is
// the default when metrics are not configured.
package metrics
