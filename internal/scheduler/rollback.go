package scheduler

import (
	"context"
	"slices"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/node"
)

// rollback runs the rollback stage of every failed stage that declares one.
// Failed stages are visited in reverse topological order. Only the failed
// stage's own rollback runs; skipped dependents and succeeded dependencies are
// left alone.
func (s *Scheduler) rollback(ctx context.Context, r *run) {
	logger := ctxlog.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	order, err := r.graph.TopologicalOrder()
	if err != nil {
		// Validate already rejected cycles; fall back to declaration order.
		order = r.order
	}
	slices.Reverse(order)

	for _, id := range order {
		n := r.nodes[id]
		if n.GetState() != node.Failed || n.Kind != node.CommandStage {
			continue
		}
		rb, ok := r.project.RollbackFor(id)
		if !ok {
			continue
		}

		stageLogger := logger.With(ctxlog.Stage(id))
		stageLogger.Info("Running rollback for failed stage.")
		err := s.runCommands(ctxlog.WithLogger(ctx, stageLogger), r.project, n.Stage, rb.Commands, r.vc, RollbackFailed)
		r.rollbacks[id] = err
		if err != nil {
			stageLogger.Error("Rollback failed.", ctxlog.Error(err))
			continue
		}
		stageLogger.Info("Rollback finished.")
	}
}
