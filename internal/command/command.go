// Package command is the capability through which every stage and package
// build runs external processes. The scheduler and the package drivers only
// see the Executor interface, so tests substitute fakes for real processes.
package command

import (
	"context"
	"fmt"
	"strings"
)

// Request describes one process invocation. Exactly one of Command or Argv is
// used: Argv runs a program directly, Command is handed to a shell.
type Request struct {
	Command string
	Argv    []string
	// Dir is the working directory. Empty means the executor's default.
	Dir string
	// Env holds KEY=VALUE pairs layered over the executor's base environment.
	Env []string
	// Image is the container image the stage asked for. Executors that do not
	// run in containers ignore it.
	Image string
}

// String renders the request for logs and error messages.
func (r Request) String() string {
	if len(r.Argv) > 0 {
		return strings.Join(r.Argv, " ")
	}
	return r.Command
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	Output   []byte
}

// Executor runs a request. The returned error is non-nil only when the
// process could not be run at all; a non-zero exit is reported in Result.
type Executor interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req Request) (Result, error)

func (f ExecutorFunc) Run(ctx context.Context, req Request) (Result, error) { return f(ctx, req) }

// ExitError is returned by Check for a process that exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.Code)
	if tail := lastLines(e.Output, 5); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Check runs req and folds a non-zero exit into an *ExitError.
func Check(ctx context.Context, exec Executor, req Request) (Result, error) {
	res, err := exec.Run(ctx, req)
	if err != nil {
		return res, fmt.Errorf("failed to run %q: %w", req.String(), err)
	}
	if res.ExitCode != 0 {
		return res, &ExitError{Command: req.String(), Code: res.ExitCode, Output: string(res.Output)}
	}
	return res, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
