package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/manifest"
	"github.com/vk/anda/internal/metrics"
	"github.com/vk/anda/internal/notify"
	"github.com/vk/anda/internal/pkgbuild"
	"github.com/vk/anda/internal/retry"
	"github.com/vk/anda/internal/revision"
	"github.com/vk/anda/internal/scheduler"
	"github.com/vk/anda/internal/vars"
)

// build runs every selected project one after the other. A failed project
// does not stop the ones after it; all failures are joined.
func (a *App) build(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	projects, err := a.load(ctx)
	if err != nil {
		return err
	}
	if a.config.Package != "" {
		projects = FilterKind(projects, a.config.Package)
		if len(projects) == 0 {
			logger.Warn("No selected project declares this package kind, nothing to build.", "package", string(a.config.Package))
			return nil
		}
	}

	rev, err := revision.Detect(a.config.Workdir)
	if err != nil {
		logger.Warn("Could not read repository revision, COMMIT_ID and BRANCH stay unset.", ctxlog.Error(err))
	}

	sched, closeObservers := a.newScheduler(ctx)
	defer closeObservers()

	var errs []error
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("build interrupted before project %q: %w", p.Name, err))
			break
		}
		vc := vars.NewContext(p.Name, rev.Commit, rev.Branch, p.Env)
		report, err := sched.Run(ctx, p, vc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		writeReport(a.outW, report)
		if err := report.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) newScheduler(ctx context.Context) (*scheduler.Scheduler, func()) {
	logger := ctxlog.FromContext(ctx)

	policy := retry.DefaultPolicy()
	if a.config.MaxAttempts > 0 {
		policy.MaxAttempts = a.config.MaxAttempts
	}
	var cache *pkgbuild.Cache
	if a.config.CacheDir != "" {
		cache = &pkgbuild.Cache{Dir: a.config.CacheDir, Recorder: a.recorder}
	}
	builder := &pkgbuild.Builder{
		Exec:       a.exec,
		Workdir:    a.config.Workdir,
		OutputRoot: a.config.OutputRoot,
		Cache:      cache,
		Policy:     policy,
		Hooks:      a.hooks,
		Recorder:   a.recorder,

		OCILabels:    a.config.OCILabels,
		OCIBuildArgs: a.config.OCIBuildArgs,
	}

	opts := []scheduler.Option{
		scheduler.WithWorkers(a.config.WorkerCount),
		scheduler.WithWorkdir(a.config.Workdir),
		scheduler.WithPackageBuilder(builder),
		scheduler.WithObserver(&metrics.RunObserver{Recorder: a.recorder}),
	}
	for _, o := range a.observer {
		opts = append(opts, scheduler.WithObserver(o))
	}

	closeFn := func() {}
	if a.config.NotifyURL != "" {
		pub, err := notify.Dial(ctx, notify.Config{URL: a.config.NotifyURL})
		if err != nil {
			logger.Warn("Progress notifications disabled.", ctxlog.Error(err))
		} else {
			opts = append(opts, scheduler.WithObserver(pub))
			closeFn = pub.Close
		}
	}
	return scheduler.New(a.exec, opts...), closeFn
}

// FilterKind keeps the projects whose package target is of kind. Projects
// without a target are dropped.
func FilterKind(projects []*manifest.Project, kind manifest.TargetKind) []*manifest.Project {
	var out []*manifest.Project
	for _, p := range projects {
		if p.Target != nil && p.Target.Kind() == kind {
			out = append(out, p)
		}
	}
	return out
}

func writeReport(w io.Writer, r *scheduler.Report) {
	fmt.Fprintf(w, "Project %s (%s, %s)\n", r.Project, r.Outcome, r.Duration.Round(time.Millisecond))
	for _, res := range r.Results {
		line := fmt.Sprintf("  %-8s %s", res.Outcome, res.Stage)
		if res.Outcome == scheduler.Failed && res.Err != nil {
			line += ": " + res.Err.Error()
		}
		if res.RolledBack {
			if res.RollbackErr != nil {
				line += " (rollback failed: " + res.RollbackErr.Error() + ")"
			} else {
				line += " (rolled back)"
			}
		}
		fmt.Fprintln(w, line)
	}
}
