// Package server routes MCP tool invocations to registered tools and
// normalizes every outcome into the result envelope. It is the single
// boundary where errors become caller-facing; nothing propagates into the
// MCP transport.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nkkko/daytona-mcp-interpreter/internal/observability"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
)

// Server exposes the tool registry over MCP (stdio or streamable HTTP).
type Server struct {
	mcpServer  *mcpserver.MCPServer
	httpServer *mcpserver.StreamableHTTPServer
	registry   *tools.Registry
	metrics    *observability.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// New creates the MCP server and registers every tool in the registry.
// metrics may be nil; tracer may be a no-op tracer.
func New(version string, registry *tools.Registry, metrics *observability.Metrics, tracer trace.Tracer, logger *slog.Logger) (*Server, error) {
	m := mcpserver.NewMCPServer(
		"daytona-mcp-interpreter",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	s := &Server{
		mcpServer: m,
		registry:  registry,
		metrics:   metrics,
		tracer:    tracer,
		logger:    logger,
	}

	for _, t := range registry.All() {
		schema, err := json.Marshal(t.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("encoding schema for %s: %w", t.Name(), err)
		}
		m.AddTool(
			mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema),
			s.handlerFor(t),
		)
	}

	logger.Info("mcp server configured", slog.Int("tools", len(registry.List())))
	return s, nil
}

// handlerFor adapts one tool into an MCP handler. The returned error is
// always nil: every failure is expressed through the envelope instead.
func (s *Server) handlerFor(t tools.Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env := s.Dispatch(ctx, t.Name(), req.GetArguments())

		data, err := json.Marshal(env)
		if err != nil {
			// Metadata held something unencodable; degrade, don't drop.
			data, _ = json.Marshal(errorEnvelope(kindInternal, err.Error()))
		}
		if env.Status == "error" {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// Dispatch validates arguments and executes the named tool, returning the
// uniform envelope. Validation failures never touch the sandbox.
func (s *Server) Dispatch(ctx context.Context, name string, args map[string]any) *Envelope {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "tool.dispatch",
		trace.WithAttributes(attribute.String("tool", name)),
	)
	defer span.End()

	t := s.registry.Get(name)
	if t == nil {
		s.metrics.RecordTool(name, "validation_error", time.Since(start))
		return errorEnvelope(kindValidation, fmt.Sprintf("unknown tool: %s", name))
	}

	if err := t.Validate(args); err != nil {
		s.metrics.RecordTool(name, "validation_error", time.Since(start))
		s.logger.WarnContext(ctx, "tool arguments rejected",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		return errorEnvelope(kindValidation, err.Error())
	}

	res, err := t.Execute(ctx, args)
	if err != nil {
		env := classifyError(err)
		span.SetAttributes(attribute.String("error_kind", env.Error.Kind))
		s.metrics.RecordTool(name, env.Error.Kind, time.Since(start))
		s.logger.ErrorContext(ctx, "tool execution failed",
			slog.String("tool", name),
			slog.String("kind", env.Error.Kind),
			slog.String("error", err.Error()),
		)
		return env
	}

	s.metrics.RecordTool(name, "ok", time.Since(start))
	s.logger.InfoContext(ctx, "tool execution complete",
		slog.String("tool", name),
		slog.Bool("success", res.Success),
		slog.Duration("duration", time.Since(start)),
	)
	return okEnvelope(res)
}

// ServeStdio runs the server over stdio and blocks until EOF or error.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("mcp server starting", slog.String("transport", "stdio"))
	if err := mcpserver.ServeStdio(s.mcpServer); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

// ServeHTTP runs the server over streamable HTTP and blocks until it exits.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	s.httpServer = mcpserver.NewStreamableHTTPServer(s.mcpServer)
	s.logger.Info("mcp server starting",
		slog.String("transport", "http"),
		slog.String("addr", addr),
	)
	if err := s.httpServer.Start(addr); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP transport if one is running.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("mcp server shutting down")
	return s.httpServer.Shutdown(ctx)
}
