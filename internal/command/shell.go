package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/vk/anda/internal/ctxlog"
)

// Shell runs requests on the local host. Command strings go through
// `Shell -c`, argv requests are executed directly.
type Shell struct {
	// Shell defaults to /bin/sh.
	Shell string
	// Dir is used when a request does not name one.
	Dir string
	// InheritEnv layers request env over the process environment instead of
	// starting from an empty one.
	InheritEnv bool
}

// NewShell returns a Shell that inherits the process environment.
func NewShell(dir string) *Shell {
	return &Shell{Shell: "/bin/sh", Dir: dir, InheritEnv: true}
}

// Run implements Executor.
func (s *Shell) Run(ctx context.Context, req Request) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	var cmd *exec.Cmd
	switch {
	case len(req.Argv) > 0:
		cmd = exec.CommandContext(ctx, req.Argv[0], req.Argv[1:]...)
	case req.Command != "":
		sh := s.Shell
		if sh == "" {
			sh = "/bin/sh"
		}
		cmd = exec.CommandContext(ctx, sh, "-c", req.Command)
	default:
		return Result{}, errors.New("empty command")
	}

	cmd.Dir = req.Dir
	if cmd.Dir == "" {
		cmd.Dir = s.Dir
	}
	if s.InheritEnv {
		cmd.Env = append(os.Environ(), req.Env...)
	} else {
		cmd.Env = append([]string{}, req.Env...)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Debug("Running command.", "command", req.String(), "dir", cmd.Dir)
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return Result{Output: out.Bytes()}, nil
	case errors.As(err, &exitErr):
		logger.Debug("Command exited non-zero.", "command", req.String(), "exit_code", exitErr.ExitCode())
		return Result{ExitCode: exitErr.ExitCode(), Output: out.Bytes()}, nil
	default:
		return Result{Output: out.Bytes()}, err
	}
}
