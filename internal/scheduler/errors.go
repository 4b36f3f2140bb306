package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSkipped marks the error of a stage that never ran.
var ErrSkipped = errors.New("stage skipped")

// StageErrorKind classifies a StageExecutionError.
type StageErrorKind int

const (
	CommandFailed StageErrorKind = iota + 1
	RollbackFailed
)

func (k StageErrorKind) String() string {
	switch k {
	case CommandFailed:
		return "command_failed"
	case RollbackFailed:
		return "rollback_failed"
	default:
		return "unknown"
	}
}

// StageExecutionError reports a failing command of a stage or of its rollback.
type StageExecutionError struct {
	Kind    StageErrorKind
	Stage   string
	Command string
	// ExitStatus is -1 when the command could not be started.
	ExitStatus int
	Err        error
}

func (e *StageExecutionError) Error() string {
	what := "stage"
	if e.Kind == RollbackFailed {
		what = "rollback of stage"
	}
	if e.ExitStatus < 0 {
		return fmt.Sprintf("%s %q: %v", what, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %q: command %q failed with exit status %d", what, e.Stage, e.Command, e.ExitStatus)
}

func (e *StageExecutionError) Unwrap() error { return e.Err }

// RunError summarises a run that did not fully succeed. Cause is the error of
// the first failed stage in declaration order.
type RunError struct {
	Project string
	Failed  []string
	Cause   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("project %q: %d stage(s) failed (%s): %v", e.Project, len(e.Failed), strings.Join(e.Failed, ", "), e.Cause)
}

func (e *RunError) Unwrap() error { return e.Cause }
