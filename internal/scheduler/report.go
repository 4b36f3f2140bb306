package scheduler

import (
	"time"

	"github.com/vk/anda/internal/node"
)

// StageOutcome is the terminal classification of one stage.
type StageOutcome int

const (
	Success StageOutcome = iota + 1
	Failed
	Skipped
)

func (o StageOutcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// RunOutcome is the overall classification of a project run.
type RunOutcome int

const (
	AllSucceeded RunOutcome = iota + 1
	PartialFailure
)

func (o RunOutcome) String() string {
	if o == AllSucceeded {
		return "all_succeeded"
	}
	return "partial_failure"
}

// StageResult is the record of one stage in a run.
type StageResult struct {
	Stage   string
	Outcome StageOutcome
	// Err is the failure detail for Failed and the skip reason for Skipped.
	Err      error
	Started  time.Time
	Duration time.Duration
	// RolledBack is true when a rollback ran for this stage, successfully or not.
	RolledBack  bool
	RollbackErr error
}

// Report is the full result of a project run. Results follow declaration
// order with the package stage, if any, last.
type Report struct {
	RunID    string
	Project  string
	Results  []StageResult
	Outcome  RunOutcome
	Failed   []string
	Duration time.Duration
}

// Result returns the record for a stage.
func (r *Report) Result(stage string) (StageResult, bool) {
	for _, res := range r.Results {
		if res.Stage == stage {
			return res, true
		}
	}
	return StageResult{}, false
}

// Err returns nil for AllSucceeded and a *RunError otherwise.
func (r *Report) Err() error {
	if r.Outcome == AllSucceeded {
		return nil
	}
	var cause error
	for _, res := range r.Results {
		if res.Outcome == Failed {
			cause = res.Err
			break
		}
	}
	if cause == nil {
		// Everything that did not succeed was skipped, e.g. by cancellation.
		for _, res := range r.Results {
			if res.Outcome == Skipped {
				cause = res.Err
				break
			}
		}
	}
	return &RunError{Project: r.Project, Failed: r.Failed, Cause: cause}
}

// Count returns how many stages ended with the given outcome.
func (r *Report) Count(o StageOutcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

func outcomeOf(s node.State) StageOutcome {
	switch s {
	case node.Succeeded:
		return Success
	case node.Failed:
		return Failed
	default:
		return Skipped
	}
}
