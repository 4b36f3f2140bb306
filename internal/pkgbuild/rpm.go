package pkgbuild

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/metrics"
	"github.com/vk/anda/internal/retry"
)

// Toolchain is the set of external steps the RPM driver sequences.
type Toolchain interface {
	// Probe runs a dry-run source package build.
	Probe(ctx context.Context) (Probe, error)
	// InstallBuildDeps installs the requirements named by a placeholder.
	InstallBuildDeps(ctx context.Context, placeholder string) error
	// Remove deletes a placeholder left behind by a probe.
	Remove(placeholder string) error
	// Build produces binary packages from a source package and returns every
	// file it wrote.
	Build(ctx context.Context, srpm string) ([]string, error)
}

// DependencyResolutionExhaustedError is returned when every probe still
// reported unresolved build requirements.
type DependencyResolutionExhaustedError struct {
	Attempts    int
	Placeholder string
}

func (e *DependencyResolutionExhaustedError) Error() string {
	return fmt.Sprintf("could not resolve build dependencies after %d attempts", e.Attempts)
}

// IsResolutionExhausted reports whether err carries a DependencyResolutionExhaustedError.
func IsResolutionExhausted(err error) bool {
	var ex *DependencyResolutionExhaustedError
	return errors.As(err, &ex)
}

// RPMDriver runs the probe, resolve and build phases of an RPM build. It is
// strictly sequential: each step decides the next.
type RPMDriver struct {
	Tool Toolchain
	// Policy bounds the probes. The zero value means retry.DefaultPolicy.
	Policy   retry.Policy
	Cache    *Cache
	Recorder metrics.Recorder
}

// Run builds the package and returns the produced files.
func (d *RPMDriver) Run(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	rec := metrics.OrNoop(d.Recorder)

	policy := d.Policy
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}

	var last Probe
	policy = policy.WithOnRetry(func(ctx context.Context, attempt int) error {
		if err := d.Tool.Remove(last.CandidatePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove placeholder %s: %w", last.CandidatePath, err)
		}
		return nil
	})

	attempts, err := policy.Do(ctx, func(ctx context.Context, attempt int) (bool, error) {
		p, err := d.Tool.Probe(ctx)
		if err != nil {
			return false, fmt.Errorf("source package probe failed: %w", err)
		}
		last = p
		rec.IncProbe(p.Unresolved)
		if !p.Unresolved {
			return false, nil
		}

		logger.Info("Source package has unresolved build requirements.",
			ctxlog.Attempt(attempt), "placeholder", p.CandidatePath)
		if attempt < policy.MaxAttempts {
			if err := d.Tool.InstallBuildDeps(ctx, p.CandidatePath); err != nil {
				return false, fmt.Errorf("failed to install build dependencies: %w", err)
			}
		}
		return true, nil
	})
	if err != nil {
		if retry.IsExhausted(err) {
			if rmErr := d.Tool.Remove(last.CandidatePath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				logger.Warn("Failed to remove placeholder.", ctxlog.Error(rmErr))
			}
			rec.IncResolutionExhausted()
			return nil, &DependencyResolutionExhaustedError{Attempts: attempts, Placeholder: last.CandidatePath}
		}
		return nil, err
	}

	logger.Info("Source package ready.", "srpm", last.CandidatePath, ctxlog.Attempt(attempts))
	files, err := d.Tool.Build(ctx, last.CandidatePath)
	if err != nil {
		return nil, fmt.Errorf("package build failed: %w", err)
	}
	d.Cache.Store(ctx, files)
	return files, nil
}
