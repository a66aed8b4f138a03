package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goutils "github.com/jkaninda/go-utils"
	"github.com/spf13/cobra"

	"github.com/nkkko/daytona-mcp-interpreter/internal/config"
	"github.com/nkkko/daytona-mcp-interpreter/internal/daytona"
	"github.com/nkkko/daytona-mcp-interpreter/internal/observability"
	"github.com/nkkko/daytona-mcp-interpreter/internal/server"
	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools/code"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools/file"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools/git"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools/plot"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools/preview"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools/shell"
	"github.com/nkkko/daytona-mcp-interpreter/internal/transfer"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "daytona-mcp.yaml", "Path to the config file")
	rootCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "daytona-mcp.yaml", "Path to the config file")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(goutils.Env("MCP_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)
	logger.Info("starting daytona mcp interpreter",
		slog.String("version", version),
		slog.String("transport", cfg.Server.TransportKind()),
	)

	// Signal-aware context: SIGINT/SIGTERM begins a graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Observability (optional).
	var (
		metrics *observability.Metrics
		obsHTTP *observability.HTTPServer
	)
	tracerSetup, err := observability.NewTracerSetup(tracingConfig(cfg))
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerSetup.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", slog.String("error", err.Error()))
		}
	}()

	health := observability.NewHealthChecker(logger)
	if cfg.Observability != nil && cfg.Observability.Metrics != nil && cfg.Observability.Metrics.Enabled {
		metrics = observability.NewMetrics()
		obsHTTP = observability.NewHTTPServer(cfg.Observability.Metrics, metrics, health, logger)
	}

	// Remote client + connectivity check.
	client := daytona.NewClient(cfg.Daytona, logger)
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("connecting to daytona server: %w", err)
	}
	logger.Info("connected to daytona server", slog.String("url", cfg.Daytona.APIURL))
	health.AddCheck("daytona", client.Health)

	// Session lifecycle. The deferred teardown is the guaranteed release
	// path: it runs on every exit, including error returns, with its own
	// context since the signal context is already canceled by then.
	sessions := session.NewManager(client, cfg.Session, metrics, logger)
	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sessions.Teardown(teardownCtx)
	}()

	// Tools.
	executor := transfer.NewExecutor(metrics, logger)
	registry := tools.NewRegistry()
	registry.Register(code.NewTool(sessions, logger))
	registry.Register(shell.NewTool(sessions, logger))
	registry.Register(plot.NewTool(sessions, logger))
	registry.Register(file.NewDownloadTool(sessions, executor, cfg.Transfer, logger))
	registry.Register(file.NewUploadTool(sessions, logger))
	registry.Register(git.NewTool(sessions, logger))
	registry.Register(preview.NewTool(sessions, previewDomain(cfg), logger))

	srv, err := server.New(version, registry, metrics, tracerSetup.Tracer(), logger)
	if err != nil {
		return err
	}

	if obsHTTP != nil {
		go func() {
			if err := obsHTTP.Start(ctx); err != nil {
				logger.Error("observability endpoint failed", slog.String("error", err.Error()))
			}
		}()
	}

	// Serve until the transport exits or a signal arrives.
	errCh := make(chan error, 1)
	go func() {
		if cfg.Server.TransportKind() == "http" {
			errCh <- srv.ServeHTTP(ctx, cfg.Server.Addr())
			return
		}
		errCh <- srv.ServeStdio(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-errCh:
		if err != nil {
			logger.Error("mcp server exited", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
		logger.Warn("mcp server shutdown", slog.String("error", sErr.Error()))
	}
	if oErr := obsHTTP.Stop(shutdownCtx); oErr != nil {
		logger.Warn("observability endpoint shutdown", slog.String("error", oErr.Error()))
	}
	return err
}

// newLogger builds the process logger on stderr; stdout belongs to the
// stdio MCP transport.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func tracingConfig(cfg *config.Config) *config.TracingConfig {
	if cfg.Observability == nil {
		return nil
	}
	return cfg.Observability.Tracing
}

// previewDomain resolves the domain preview links are minted under,
// falling back to the Daytona server's host.
func previewDomain(cfg *config.Config) string {
	if cfg.Daytona.PreviewDomain != "" {
		return cfg.Daytona.PreviewDomain
	}
	if u, err := url.Parse(cfg.Daytona.APIURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "localhost"
}
