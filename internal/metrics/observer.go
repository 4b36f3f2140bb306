package metrics

import (
	"context"

	"github.com/vk/anda/internal/scheduler"
)

// RunObserver feeds scheduler progress into a Recorder.
type RunObserver struct {
	Recorder Recorder
}

var _ scheduler.Observer = (*RunObserver)(nil)

func (o *RunObserver) StageStarted(context.Context, string, string, string) {}

func (o *RunObserver) StageFinished(_ context.Context, _, project string, res scheduler.StageResult) {
	rec := OrNoop(o.Recorder)
	switch res.Outcome {
	case scheduler.Success:
		rec.IncStageResult(project, res.Stage, ResultSuccess)
	case scheduler.Failed:
		rec.IncStageResult(project, res.Stage, ResultFailed)
	default:
		rec.IncStageResult(project, res.Stage, ResultSkipped)
		return
	}
	rec.ObserveStageDuration(project, res.Stage, res.Duration)
}

func (o *RunObserver) RunFinished(_ context.Context, report *scheduler.Report) {
	rec := OrNoop(o.Recorder)
	rec.ObserveRunDuration(report.Project, report.Duration)
	rec.IncRunOutcome(report.Project, report.Outcome.String())
	for _, res := range report.Results {
		if res.RolledBack {
			rec.IncRollback(report.Project, res.RollbackErr == nil)
		}
	}
}
