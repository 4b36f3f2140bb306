package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for runs, stages, package builds and
// graph compilation. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(project, stage string, d time.Duration)
	IncStageResult(project, stage string, result ResultLabel)
	ObserveRunDuration(project string, d time.Duration)
	IncRunOutcome(project, outcome string)
	IncRollback(project string, success bool)
	IncProbe(unresolved bool)
	IncResolutionExhausted()
	IncCacheCopy(success bool)
	IncCompile(result string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(string, time.Duration)           {}
func (NoopRecorder) IncRunOutcome(string, string)                       {}
func (NoopRecorder) IncRollback(string, bool)                           {}
func (NoopRecorder) IncProbe(bool)                                      {}
func (NoopRecorder) IncResolutionExhausted()                            {}
func (NoopRecorder) IncCacheCopy(bool)                                  {}
func (NoopRecorder) IncCompile(string)                                  {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
