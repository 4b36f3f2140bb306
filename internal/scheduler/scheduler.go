package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/anda/internal/command"
	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/dag"
	"github.com/vk/anda/internal/manifest"
	"github.com/vk/anda/internal/node"
	"github.com/vk/anda/internal/vars"
)

// DefaultWorkers is the concurrency limit used when none is configured.
const DefaultWorkers = 4

// Scheduler executes projects. A Scheduler holds no per-run state and may run
// several projects concurrently.
type Scheduler struct {
	exec      command.Executor
	packages  PackageBuilder
	observers []Observer
	workers   int
	workdir   string
	now       func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers bounds how many stages of one project run at the same time.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithWorkdir sets the directory stage commands run in.
func WithWorkdir(dir string) Option {
	return func(s *Scheduler) { s.workdir = dir }
}

// WithPackageBuilder sets the builder for projects that declare a package target.
func WithPackageBuilder(b PackageBuilder) Option {
	return func(s *Scheduler) { s.packages = b }
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// New creates a Scheduler running commands through exec.
func New(exec command.Executor, opts ...Option) *Scheduler {
	s := &Scheduler{exec: exec, workers: DefaultWorkers, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run is the state of a single project run.
type run struct {
	id      string
	project *manifest.Project
	vc      vars.Context
	graph   *dag.Graph
	nodes   map[string]*node.Node
	order   []string
	wg      sync.WaitGroup
	// rollbacks records, per failed stage whose rollback ran, the rollback error.
	rollbacks map[string]error
}

// Run executes every stage of the project and returns the full report. The
// error is non-nil only when the project is invalid or misconfigured, or the
// context is already done; no stage was started in that case. Stage failures
// are reported through the Report.
func (s *Scheduler) Run(ctx context.Context, project *manifest.Project, vc vars.Context) (*Report, error) {
	if err := manifest.Validate(project); err != nil {
		return nil, err
	}
	if project.Target != nil && s.packages == nil {
		return nil, fmt.Errorf("project %q declares a %s target but no package builder is configured", project.Name, project.Target.Kind())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := s.plan(project, vc)
	logger := ctxlog.FromContext(ctx).With(ctxlog.RunID(r.id), ctxlog.Project(project.Name))
	ctx = ctxlog.WithLogger(ctx, logger)

	start := s.now()
	if len(r.nodes) == 0 {
		logger.Warn("Project has no stages, nothing to run.")
	} else {
		s.execute(ctx, r)
		s.rollback(ctx, r)
	}

	report := r.report()
	report.Duration = s.now().Sub(start)
	logger.Info("Project run finished.",
		ctxlog.Outcome(report.Outcome.String()),
		"succeeded", report.Count(Success),
		"failed", report.Count(Failed),
		"skipped", report.Count(Skipped),
	)
	for _, o := range s.observers {
		o.RunFinished(ctx, report)
	}
	return report, nil
}

// plan builds the run graph. The package stage depends on every stage that
// nothing else depends on, so it runs last.
func (s *Scheduler) plan(project *manifest.Project, vc vars.Context) *run {
	r := &run{
		id:      uuid.NewString(),
		project: project,
		vc:      vc,
		graph:   manifest.Graph(project),
		nodes:   make(map[string]*node.Node, len(project.Stages)+1),

		rollbacks: make(map[string]error),
	}
	for _, st := range project.Stages {
		r.nodes[st.Name] = node.New(st)
		r.order = append(r.order, st.Name)
	}
	if project.Target != nil {
		name := project.PackageStageName()
		sinks := r.graph.Sinks()
		r.graph.AddNode(name)
		for _, sink := range sinks {
			_ = r.graph.AddEdge(sink, name)
		}
		r.nodes[name] = node.NewPackage(name)
		r.order = append(r.order, name)
	}
	for id, n := range r.nodes {
		deps, _ := r.graph.Dependencies(id)
		n.SetDepCount(int32(len(deps)))
	}
	return r
}

// execute runs the worker pool until every node is terminal.
func (s *Scheduler) execute(ctx context.Context, r *run) {
	logger := ctxlog.FromContext(ctx)

	// Each node is queued at most once, so the buffer never blocks a sender.
	readyChan := make(chan *node.Node, len(r.nodes))
	r.wg.Add(len(r.nodes))

	logger.Debug("Initializing run, finding root stages...")
	for _, id := range r.order {
		if n := r.nodes[id]; n.DepCount() == 0 {
			logger.Debug("Found root stage.", ctxlog.Stage(id))
			readyChan <- n
		}
	}

	workers := min(s.workers, len(r.nodes))
	logger.Debug("Starting worker pool.", "workers", workers)
	for i := 0; i < workers; i++ {
		go s.worker(ctx, r, readyChan, i)
	}

	r.wg.Wait()
	close(readyChan)
	logger.Debug("All stages reached a terminal state.")
}

// skipDependents marks every transitive dependent of n as skipped.
func (s *Scheduler) skipDependents(ctx context.Context, r *run, n *node.Node, cause error) {
	logger := ctxlog.FromContext(ctx)
	dependents, _ := r.graph.Dependents(n.ID())
	for _, id := range dependents {
		dep := r.nodes[id]
		err := fmt.Errorf("%w: dependency %q did not succeed: %w", ErrSkipped, n.ID(), cause)
		if errors.Is(cause, ErrSkipped) {
			err = cause
		}
		if dep.Skip(err, &r.wg) {
			logger.Warn("Skipping dependent stage due to upstream failure.", ctxlog.Stage(id), "dependency", n.ID())
			s.notifyFinished(ctx, r, dep)
			s.skipDependents(ctx, r, dep, err)
		}
	}
}

func (s *Scheduler) notifyStarted(ctx context.Context, r *run, n *node.Node) {
	for _, o := range s.observers {
		o.StageStarted(ctx, r.id, r.project.Name, n.ID())
	}
}

func (s *Scheduler) notifyFinished(ctx context.Context, r *run, n *node.Node) {
	if len(s.observers) == 0 {
		return
	}
	res := resultOf(n)
	for _, o := range s.observers {
		o.StageFinished(ctx, r.id, r.project.Name, res)
	}
}

func (r *run) report() *Report {
	rep := &Report{RunID: r.id, Project: r.project.Name, Outcome: AllSucceeded}
	for _, id := range r.order {
		res := resultOf(r.nodes[id])
		if rb, ok := r.rollbacks[id]; ok {
			res.RolledBack = true
			res.RollbackErr = rb
		}
		if res.Outcome != Success {
			rep.Outcome = PartialFailure
		}
		if res.Outcome == Failed {
			rep.Failed = append(rep.Failed, id)
		}
		rep.Results = append(rep.Results, res)
	}
	return rep
}

func resultOf(n *node.Node) StageResult {
	return StageResult{
		Stage:    n.ID(),
		Outcome:  outcomeOf(n.GetState()),
		Err:      n.Error,
		Started:  n.Started,
		Duration: n.Duration(),
	}
}
