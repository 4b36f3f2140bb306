package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/vk/anda/internal/command"
	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/metrics"
	"github.com/vk/anda/internal/scheduler"
	"github.com/vk/anda/internal/script"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	exec     command.Executor
	hooks    []script.Hook
	observer []scheduler.Observer

	registry *prom.Registry
	recorder *metrics.PrometheusRecorder

	httpServer *http.Server
}

// Option customises an App.
type Option func(*App)

// WithExecutor replaces the shell executor, mainly for tests.
func WithExecutor(exec command.Executor) Option {
	return func(a *App) { a.exec = exec }
}

// WithHooks registers script hooks run before every RPM build.
func WithHooks(hooks ...script.Hook) Option {
	return func(a *App) { a.hooks = append(a.hooks, hooks...) }
}

// WithObserver adds a scheduler observer.
func WithObserver(o scheduler.Observer) Option {
	return func(a *App) { a.observer = append(a.observer, o) }
}

// NewApp is the constructor for the main application. Logs go to logW,
// run reports to outW.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	registry := prom.NewRegistry()
	a := &App{
		outW:     outW,
		logger:   newLogger(cfg.LogLevel, cfg.LogFormat, logW),
		config:   cfg,
		registry: registry,
		recorder: metrics.NewPrometheusRecorder(registry),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.exec == nil {
		a.exec = command.NewShell(cfg.Workdir)
	}
	a.logger.Debug("App configured.", "mode", string(cfg.Mode))
	return a
}

// Run performs the configured workflow.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	switch a.config.Mode {
	case ModeBuild:
		a.startHealthCheckServer(ctx)
		defer a.closeHealthCheckServer(ctx)
		return a.build(ctx)
	case ModeValidate:
		_, err := a.load(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.outW, "Manifest is valid.")
		return nil
	case ModeList:
		return a.list(ctx)
	case ModeClean:
		return a.clean(ctx)
	case ModeServe:
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown mode %q", a.config.Mode)
	}
}
