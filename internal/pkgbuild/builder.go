package pkgbuild

import (
	"context"
	"fmt"

	"github.com/vk/anda/internal/command"
	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/manifest"
	"github.com/vk/anda/internal/metrics"
	"github.com/vk/anda/internal/retry"
	"github.com/vk/anda/internal/scheduler"
	"github.com/vk/anda/internal/script"
	"github.com/vk/anda/internal/vars"
)

// Builder dispatches a project's package target to the matching driver.
type Builder struct {
	Exec       command.Executor
	Workdir    string
	OutputRoot string
	Cache      *Cache
	Policy     retry.Policy
	// Hooks run against the working directory before an RPM build.
	Hooks    []script.Hook
	Recorder metrics.Recorder
	// OCILabels and OCIBuildArgs are passed to every container image build.
	OCILabels    map[string]string
	OCIBuildArgs map[string]string
	// Toolchain overrides the rpmbuild toolchain, mainly for tests.
	Toolchain func(t *manifest.RPMTarget, l Layout, env []string) Toolchain
}

var _ scheduler.PackageBuilder = (*Builder)(nil)

func (b *Builder) layout() Layout {
	return Layout{Workdir: b.Workdir, Root: b.OutputRoot}
}

func (b *Builder) Build(ctx context.Context, p *manifest.Project, vc vars.Context) error {
	logger := ctxlog.FromContext(ctx).With("kind", string(p.Target.Kind()))
	ctx = ctxlog.WithLogger(ctx, logger)

	var (
		files []string
		err   error
	)
	switch t := p.Target.(type) {
	case *manifest.RPMTarget:
		files, err = b.buildRPM(ctx, t, vc)
	case *manifest.OCIImageTarget:
		oci := &OCIRunner{
			Exec:      b.Exec,
			Workdir:   b.Workdir,
			Env:       vc.Environ(),
			Labels:    b.OCILabels,
			BuildArgs: b.OCIBuildArgs,
		}
		files, err = oci.Build(ctx, t)
	case *manifest.SandboxedAppTarget:
		fp := &FlatpakRunner{Exec: b.Exec, Layout: b.layout(), Env: vc.Environ()}
		if files, err = fp.Build(ctx, t); err == nil {
			b.Cache.Store(ctx, files)
		}
	default:
		err = fmt.Errorf("unsupported package target %T", t)
	}
	if err != nil {
		return err
	}
	logger.Info("Package built.", "artifacts", len(files))
	return nil
}

func (b *Builder) buildRPM(ctx context.Context, t *manifest.RPMTarget, vc vars.Context) ([]string, error) {
	env := vc.Environ()
	if err := b.runScript(ctx, "pre", t.PreScript, vc); err != nil {
		return nil, err
	}
	if err := script.RunHooks(ctx, b.Workdir, b.Hooks); err != nil {
		return nil, err
	}

	rb := &RPMBuild{Exec: b.Exec, Target: t, Layout: b.layout(), Env: env}
	if err := rb.InstallDeclared(ctx); err != nil {
		return nil, fmt.Errorf("failed to install declared build dependencies: %w", err)
	}
	var tool Toolchain = rb
	if b.Toolchain != nil {
		tool = b.Toolchain(t, b.layout(), env)
	}

	driver := &RPMDriver{Tool: tool, Policy: b.Policy, Cache: b.Cache, Recorder: b.Recorder}
	files, err := driver.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.runScript(ctx, "post", t.PostScript, vc); err != nil {
		return nil, err
	}
	return files, nil
}

// runScript runs script commands with variables substituted once for the
// whole script.
func (b *Builder) runScript(ctx context.Context, phase string, commands []string, vc vars.Context) error {
	if len(commands) == 0 {
		return nil
	}
	env := vc.Environ()
	for _, c := range vars.ExpandAll(commands, vc) {
		if _, err := command.Check(ctx, b.Exec, command.Request{Command: c, Dir: b.Workdir, Env: env}); err != nil {
			return fmt.Errorf("%s script: %w", phase, err)
		}
	}
	return nil
}
