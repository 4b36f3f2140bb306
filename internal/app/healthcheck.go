package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/metrics"
	"github.com/vk/anda/internal/rpc"
)

const shutdownTimeout = 5 * time.Second

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// mux serves /health and /metrics, plus /rpc when compile is non-nil.
func (a *App) mux(compile *rpc.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.Handle("GET /metrics", metrics.HTTPHandler(a.registry))
	if compile != nil {
		compile.Register(mux)
	}
	return mux
}

// startHealthCheckServer runs /health and /metrics in the background during a build.
func (a *App) startHealthCheckServer(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if a.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server not started: disabled")
		return
	}

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	a.httpServer = &http.Server{Addr: addr, Handler: a.mux(nil), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", ctxlog.Error(err))
		}
	}()
}

func (a *App) closeHealthCheckServer(ctx context.Context) {
	if a.httpServer == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health check server shutdown failed", ctxlog.Error(err))
	}
}

// serve answers compile requests until ctx is cancelled.
func (a *App) serve(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	compile, err := rpc.NewServer(a.logger, rpc.WithRecorder(a.recorder))
	if err != nil {
		return err
	}
	defer compile.Close()
	srv := &http.Server{Addr: a.config.ListenAddr, Handler: a.mux(compile), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Compile server starting", "address", a.config.ListenAddr, "path", rpc.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("compile server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down compile server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("compile server shutdown failed: %w", err)
	}
	return nil
}
