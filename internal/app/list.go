package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/pkgbuild"
)

// list prints one line per selected project: name, aliases in parentheses,
// then the package kind or "-".
func (a *App) list(ctx context.Context) error {
	projects, err := a.load(ctx)
	if err != nil {
		return err
	}
	if a.config.Package != "" {
		projects = FilterKind(projects, a.config.Package)
	}
	for _, p := range projects {
		line := p.Name
		if len(p.Aliases) > 0 {
			line += " (" + strings.Join(p.Aliases, ", ") + ")"
		}
		kind := "-"
		if p.Target != nil {
			kind = string(p.Target.Kind())
		}
		fmt.Fprintf(a.outW, "%s\t%s\n", line, kind)
	}
	return nil
}

// clean removes the package output root.
func (a *App) clean(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	removed, err := pkgbuild.Layout{Workdir: a.config.Workdir, Root: a.config.OutputRoot}.Clean()
	if err != nil {
		return err
	}
	logger.Info("Removed build output.", "path", removed)
	fmt.Fprintf(a.outW, "Removed %s\n", removed)
	return nil
}
