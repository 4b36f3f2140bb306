package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/vk/anda/internal/buildgraph"
	"github.com/vk/anda/internal/ctxlog"
	"github.com/vk/anda/internal/metrics"
)

// CompileFunc compiles a job. It exists so tests can slow compilation down.
type CompileFunc func(ctx context.Context, spec buildgraph.JobSpec) (*buildgraph.Graph, error)

// BuilderService is registered under Namespace. Every exported method is
// callable as builder_<method>.
type BuilderService struct {
	compile  CompileFunc
	recorder metrics.Recorder
}

// Compile lowers spec and returns its wire form.
func (b *BuilderService) Compile(ctx context.Context, spec buildgraph.JobSpec) (*CompileResult, error) {
	logger := ctxlog.FromContext(ctx).With("job_id", spec.ID)

	g, err := b.compile(ctx, spec)
	if ctx.Err() != nil {
		b.recorder.IncCompile("cancelled")
		logger.Warn("Compile request cancelled.")
		return nil, newError(CodeCancelled, KindCancelled, "request cancelled")
	}
	if err != nil {
		b.recorder.IncCompile("invalid")
		logger.Info("Rejected build job.", ctxlog.Error(err))
		return nil, compileError(err)
	}

	wire, err := g.MarshalBinary()
	if err != nil {
		b.recorder.IncCompile("error")
		return nil, newError(CodeCompileFailed, "", err.Error())
	}
	digest, err := g.Digest()
	if err != nil {
		b.recorder.IncCompile("error")
		return nil, newError(CodeCompileFailed, "", err.Error())
	}
	b.recorder.IncCompile("ok")
	logger.Debug("Compiled build job.", "digest", digest, "ops", len(g.Ops))
	return &CompileResult{ID: spec.ID, Graph: wire, Digest: digest}, nil
}

// JobLLB is the legacy name of Compile.
func (b *BuilderService) JobLLB(ctx context.Context, spec buildgraph.JobSpec) (*CompileResult, error) {
	return b.Compile(ctx, spec)
}

// Server answers compile calls over HTTP.
type Server struct {
	logger *slog.Logger
	rpc    *gethrpc.Server
}

// Option configures the service behind a Server.
type Option func(*BuilderService)

func WithCompileFunc(fn CompileFunc) Option { return func(b *BuilderService) { b.compile = fn } }

func WithRecorder(r metrics.Recorder) Option { return func(b *BuilderService) { b.recorder = r } }

// NewServer creates a server that logs through logger.
func NewServer(logger *slog.Logger, opts ...Option) (*Server, error) {
	svc := &BuilderService{
		compile: func(_ context.Context, spec buildgraph.JobSpec) (*buildgraph.Graph, error) {
			return buildgraph.Compile(spec)
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.recorder = metrics.OrNoop(svc.recorder)

	srv := gethrpc.NewServer()
	if err := srv.RegisterName(Namespace, svc); err != nil {
		return nil, fmt.Errorf("failed to register %s service: %w", Namespace, err)
	}
	return &Server{logger: logger, rpc: srv}, nil
}

// Register mounts the server on mux at Path.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("POST "+Path, s)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := ctxlog.WithLogger(r.Context(), s.logger.With("remote_addr", r.RemoteAddr))
	s.rpc.ServeHTTP(w, r.WithContext(ctx))
}

// Close stops serving. Calls in flight are cancelled.
func (s *Server) Close() {
	s.rpc.Stop()
}
