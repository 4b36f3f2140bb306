package scheduler

import (
	"context"

	"github.com/vk/anda/internal/manifest"
	"github.com/vk/anda/internal/vars"
)

// PackageBuilder produces the package target of a project. It runs as the
// synthetic package stage once every other stage of the project succeeded.
type PackageBuilder interface {
	Build(ctx context.Context, project *manifest.Project, vc vars.Context) error
}

// PackageBuilderFunc adapts a function to PackageBuilder.
type PackageBuilderFunc func(ctx context.Context, project *manifest.Project, vc vars.Context) error

func (f PackageBuilderFunc) Build(ctx context.Context, p *manifest.Project, vc vars.Context) error {
	return f(ctx, p, vc)
}

// Observer receives progress notifications. Calls may arrive concurrently
// from several workers and must not block for long.
type Observer interface {
	StageStarted(ctx context.Context, runID, project, stage string)
	StageFinished(ctx context.Context, runID, project string, result StageResult)
	RunFinished(ctx context.Context, report *Report)
}
