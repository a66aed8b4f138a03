package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jkaninda/okapi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nkkko/daytona-mcp-interpreter/internal/config"
)

// HTTPServer serves the unauthenticated observability endpoints:
// /healthz, /readyz, and the Prometheus metrics path. It runs on its own
// listener so the MCP transport (often stdio) stays untouched.
type HTTPServer struct {
	cfg     *config.MetricsConfig
	metrics *Metrics
	health  *HealthChecker
	logger  *slog.Logger
	okapi   *okapi.Okapi
	server  *http.Server
}

// NewHTTPServer creates the observability endpoint. Returns nil when the
// metrics endpoint is disabled.
func NewHTTPServer(cfg *config.MetricsConfig, metrics *Metrics, health *HealthChecker, logger *slog.Logger) *HTTPServer {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &HTTPServer{
		cfg:     cfg,
		metrics: metrics,
		health:  health,
		logger:  logger,
		okapi:   okapi.New(),
	}
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (s *HTTPServer) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.okapi.Get("/healthz", s.handleLiveness)
	s.okapi.Get("/readyz", s.handleReadiness)

	if s.metrics != nil {
		path := s.cfg.Path
		if path == "" {
			path = "/metrics"
		}
		s.okapi.HandleStd("GET", path, promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)
	}

	s.server = &http.Server{
		Addr:              s.cfg.Addr(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	s.logger.Info("observability endpoint starting", slog.String("addr", s.cfg.Addr()))
	return s.okapi.StartServer(s.server)
}

// Stop gracefully shuts down the HTTP server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.logger.Info("observability endpoint stopping")
	return s.okapi.Shutdown(s.server)
}

func (s *HTTPServer) handleLiveness(c *okapi.Context) error {
	return c.OK(s.health.CheckHealth())
}

func (s *HTTPServer) handleReadiness(c *okapi.Context) error {
	status := s.health.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
