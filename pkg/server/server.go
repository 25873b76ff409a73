package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/limits/ratelimit"
	"mercator-hq/parley/pkg/proxy/handlers"
	"mercator-hq/parley/pkg/proxy/middleware"
	sectls "mercator-hq/parley/pkg/security/tls"
	"mercator-hq/parley/pkg/session"
	"mercator-hq/parley/pkg/telemetry/health"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/telemetry/tracing"
)

// BuildInfo is reported by GET /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Dependencies are the components the server routes to.
type Dependencies struct {
	// Chat serves the API routes. Required.
	Chat *handlers.ChatHandler

	// Sessions issues and verifies the session cookie. Required.
	Sessions *session.Manager

	// Limiter applies per-client rate limits to the API routes; nil
	// disables rate limiting.
	Limiter *ratelimit.Limiter

	// Health serves /health and /ready; nil serves liveness only.
	Health *health.Checker

	// Metrics is served at the configured metrics path when enabled.
	Metrics *metrics.Collector

	// Tracer opens a server span per request.
	Tracer *tracing.Tracer

	// Build is reported by /version.
	Build BuildInfo
}

// Server is the HTTP server of the chat relay.
type Server struct {
	config       *config.Config
	deps         Dependencies
	httpServer   *http.Server
	addr         net.Addr
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new server.
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Chat == nil {
		return nil, errors.New("chat handler is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}

	return &Server{
		config:       cfg,
		deps:         deps,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, Stop is called or the listener fails. It then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	serverCfg := s.config.Server

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    serverCfg.ReadTimeout,
		WriteTimeout:   serverCfg.WriteTimeout,
		IdleTimeout:    serverCfg.IdleTimeout,
		MaxHeaderBytes: serverCfg.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	tlsCtx, stopTLS := context.WithCancel(context.Background())
	defer stopTLS()

	tlsConfig, err := sectls.ServerConfig(tlsCtx, s.config.Security.TLS)
	if err != nil {
		s.setRunning(false)
		return fmt.Errorf("failed to configure TLS: %w", err)
	}
	s.httpServer.TLSConfig = tlsConfig

	ln, err := net.Listen("tcp", serverCfg.ListenAddress)
	if err != nil {
		s.setRunning(false)
		return fmt.Errorf("failed to listen on %s: %w", serverCfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"address", ln.Addr().String(),
			"api_prefix", serverCfg.APIPrefix,
			"tls_enabled", tlsConfig != nil,
		)

		var err error
		if tlsConfig != nil {
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}

		if errors.Is(err, http.ErrServerClosed) {
			errChan <- nil
			return
		}
		errChan <- fmt.Errorf("server error: %w", err)
	}()

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.setRunning(false)
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight streams.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if !s.IsRunning() {
			return
		}

		timeout := s.config.Server.ShutdownTimeout
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.setRunning(false)
		slog.Info("server stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler with the full middleware chain.
//
// Chain, outermost first:
//
//	Recovery -> Logging -> RequestID -> Tracing -> SecurityHeaders -> CORS -> mux
//
// API routes are further wrapped in RateLimit and the session middleware.
func (s *Server) Handler() http.Handler {
	serverCfg := s.config.Server
	prefix := strings.TrimSuffix(serverCfg.APIPrefix, "/")

	api := http.NewServeMux()
	s.deps.Chat.Register(api, prefix)

	var apiHandler http.Handler = api
	apiHandler = s.deps.Sessions.Middleware(apiHandler)
	if s.deps.Limiter != nil {
		apiHandler = middleware.RateLimitMiddleware(
			s.deps.Limiter,
			s.config.Limits.RateLimit.TrustForwardedFor,
			s.deps.Metrics,
		)(apiHandler)
	}

	mux := http.NewServeMux()
	mux.Handle(prefix+"/", apiHandler)
	mux.Handle("/health", s.deps.Health.LivenessHandler())
	mux.Handle("/ready", s.deps.Health.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(s.deps.Build.Version, s.deps.Build.Commit, s.deps.Build.BuildTime))

	metricsCfg := s.config.Telemetry.Metrics
	if metricsCfg.Enabled && s.deps.Metrics != nil {
		mux.Handle("GET "+metricsCfg.Path, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(serverCfg.CORS)(handler)
	if serverCfg.SecurityHeaders {
		handler = middleware.SecurityHeadersMiddleware(handler)
	}
	handler = tracing.HTTPMiddleware(s.deps.Tracer)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(s.deps.Metrics)(handler)

	return handler
}

// Addr returns the bound listener address once Start is serving.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// WaitReady blocks until Start has bound its listener or timeout elapses.
func (s *Server) WaitReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Addr() != "" {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Server) setRunning(running bool) {
	s.mu.Lock()
	s.isRunning = running
	s.mu.Unlock()
}
