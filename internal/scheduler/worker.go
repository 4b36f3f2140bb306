package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/anda/internal/command"
	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/manifest"
	"github.com/vk/anda/internal/node"
	"github.com/vk/anda/internal/vars"
)

// worker is the core processing loop for a single concurrent worker.
func (s *Scheduler) worker(ctx context.Context, r *run, readyChan chan *node.Node, workerID int) {
	logger := ctxlog.FromContext(ctx).With(ctxlog.Worker(workerID))
	logger.Debug("Worker started.")

	for n := range readyChan {
		workerLogger := logger.With(ctxlog.Stage(n.ID()))

		if err := ctx.Err(); err != nil {
			skipErr := fmt.Errorf("%w: run cancelled: %w", ErrSkipped, err)
			// Hold the run open until observers have seen the skip.
			r.wg.Add(1)
			if n.Skip(skipErr, &r.wg) {
				workerLogger.Warn("Context canceled, skipping stage.")
				s.notifyFinished(ctx, r, n)
				s.skipDependents(ctx, r, n, skipErr)
			}
			r.wg.Done()
			continue
		}

		workerLogger.Info("Stage started.")
		n.SetState(node.Running)
		n.Started = s.now()
		s.notifyStarted(ctx, r, n)

		err := s.runNode(ctxlog.WithLogger(ctx, workerLogger), r, n)
		n.Finished = s.now()

		if err != nil {
			workerLogger.Error("Stage failed.", ctxlog.Error(err), ctxlog.DurationMS(n.Duration().Milliseconds()))
			// Dependents are skipped before this node's slot is released, so
			// the run cannot finish with a dependent still pending.
			n.SetState(node.Failed)
			n.Error = err
			s.skipDependents(ctx, r, n, err)
			s.notifyFinished(ctx, r, n)
			n.Finish(node.Failed, err, &r.wg)
			continue
		}

		workerLogger.Info("Stage succeeded.", ctxlog.DurationMS(n.Duration().Milliseconds()))
		n.SetState(node.Succeeded)

		dependents, err := r.graph.Dependents(n.ID())
		if err != nil {
			workerLogger.Error("Failed to get dependents for completed stage.", ctxlog.Error(err))
		}
		for _, id := range dependents {
			dep := r.nodes[id]
			if dep.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent stage.", "dependent", id)
				readyChan <- dep
			}
		}

		s.notifyFinished(ctx, r, n)
		n.Finish(node.Succeeded, nil, &r.wg)
	}
	logger.Debug("Worker finished.")
}

// runNode executes one node and returns its failure, if any.
func (s *Scheduler) runNode(ctx context.Context, r *run, n *node.Node) error {
	if n.Kind == node.PackageStage {
		if err := s.packages.Build(ctx, r.project, r.vc); err != nil {
			return fmt.Errorf("package stage %q: %w", n.ID(), err)
		}
		return nil
	}
	return s.runCommands(ctx, r.project, n.Stage, n.Stage.Commands, r.vc, CommandFailed)
}

// runCommands expands the commands once against vc and runs them in order,
// stopping at the first failure.
func (s *Scheduler) runCommands(ctx context.Context, p *manifest.Project, st *manifest.Stage, commands []string, vc vars.Context, kind StageErrorKind) error {
	logger := ctxlog.FromContext(ctx)
	expanded := vars.ExpandAll(commands, vc)
	env := vc.Environ()
	image := p.ImageFor(st)

	for _, cmd := range expanded {
		logger.Debug("Running stage command.", "command", cmd)
		_, err := command.Check(ctx, s.exec, command.Request{
			Command: cmd,
			Dir:     s.workdir,
			Env:     env,
			Image:   image,
		})
		if err == nil {
			continue
		}
		status := -1
		var exitErr *command.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.Code
		}
		return &StageExecutionError{Kind: kind, Stage: st.Name, Command: cmd, ExitStatus: status, Err: err}
	}
	return nil
}
