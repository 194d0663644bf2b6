package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"formarter/compliance/pkg/auditor"
	"formarter/compliance/pkg/config"
	"formarter/compliance/pkg/security/auth"
	"formarter/compliance/pkg/server/middleware"
	"formarter/compliance/pkg/telemetry/health"
	"formarter/compliance/pkg/telemetry/metrics"
	"formarter/compliance/pkg/telemetry/tracing"
)

// Options carries the server's collaborators. Auditor is required.
type Options struct {
	Auditor *auditor.Auditor
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// MetricsPath, LivenessPath and ReadinessPath mount the telemetry
	// endpoints. Empty paths use the configured defaults.
	MetricsPath   string
	LivenessPath  string
	ReadinessPath string

	Build health.BuildInfo

	// Keys, when set, guards the /v1 routes with API key authentication.
	Keys *auth.KeySet

	// TLS, when set, serves HTTPS.
	TLS *tls.Config
}

// Server serves the audit HTTP API.
type Server struct {
	config     *config.ServerConfig
	opts       Options
	handler    http.Handler
	httpServer *http.Server
	logger     *slog.Logger

	mu        sync.Mutex
	isRunning bool
	addr      net.Addr
}

// New creates a server. The handler is built immediately so it can be
// exercised without listening.
func New(cfg *config.ServerConfig, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is nil")
	}
	if opts.Auditor == nil {
		return nil, errors.New("server: auditor is required")
	}
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = config.DefaultMetricsPath
	}
	if opts.LivenessPath == "" {
		opts.LivenessPath = config.DefaultLivenessPath
	}
	if opts.ReadinessPath == "" {
		opts.ReadinessPath = config.DefaultReadinessPath
	}

	s := &Server{
		config: cfg,
		opts:   opts,
		logger: slog.Default().With("component", "server"),
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Handler returns the root HTTP handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound listen address while the server is running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully within the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	if s.opts.TLS != nil {
		ln = tls.NewListener(ln, s.opts.TLS)
	}
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting audit API server",
			"address", ln.Addr().String(),
			"tls", s.opts.TLS != nil,
			"auth", s.opts.Keys != nil,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return nil
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.isRunning = false
	s.addr = nil
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("audit API server stopped")
	return nil
}

// setupRoutes registers the API and telemetry endpoints and applies the
// middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "POST /v1/audits", s.handleCreateAudit)
	s.route(mux, "GET /v1/audits", s.handleListAudits)
	s.route(mux, "GET /v1/audits/{id}", s.handleGetAudit)
	s.route(mux, "GET /v1/audits/{id}/progress", s.handleProgress)
	s.route(mux, "GET /v1/audits/{id}/guidance", s.handleFailingGuidance)
	s.route(mux, "POST /v1/collections/{name}/audits", s.handleAuditCollection)
	s.route(mux, "GET /v1/rules", s.handleListRules)
	s.route(mux, "GET /v1/rules/{id}/guidance", s.handleRuleGuidance)

	if s.opts.Metrics != nil {
		mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics.Handler())
	}
	health.Register(mux, s.opts.Health, s.opts.LivenessPath, s.opts.ReadinessPath, s.opts.Build)

	var handler http.Handler = mux
	handler = middleware.MaxBody(s.config.MaxBodyBytes)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)
	return handler
}

// route registers an API handler wrapped in a span, request metrics
// labelled by pattern and, when keys are configured, authentication.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	var inner http.Handler = h
	if s.opts.Keys != nil {
		inner = auth.Middleware(s.opts.Keys)(inner)
	}
	instrumented := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := middleware.NewStatusRecorder(w)
		inner.ServeHTTP(sr, r)
		s.opts.Metrics.RecordHTTPRequest(pattern, sr.Status, time.Since(start))
	})
	mux.Handle(pattern, s.opts.Tracer.HTTPMiddleware(pattern, instrumented))
}
