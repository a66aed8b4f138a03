// Package preview implements the web preview tool: it issues the public
// preview URL for a port inside the sandbox and optionally probes whether
// anything is listening there.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
)

// Tool issues preview links for workspace ports.
type Tool struct {
	sessions *session.Manager
	domain   string // Preview domain, e.g. "try.daytona.app".
	logger   *slog.Logger
}

// NewTool creates the web preview tool.
func NewTool(sessions *session.Manager, domain string, logger *slog.Logger) *Tool {
	return &Tool{sessions: sessions, domain: domain, logger: logger}
}

func (t *Tool) Name() string { return "web_preview" }
func (t *Tool) Description() string {
	return "Generate a public preview URL for a server running on a workspace port"
}

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"port":         map[string]any{"type": "number", "description": "Port the server listens on inside the workspace"},
			"description":  map[string]any{"type": "string", "description": "Optional label for the preview link"},
			"check_server": map[string]any{"type": "boolean", "description": "Probe the port before returning the link. Defaults to true"},
		},
		"required": []string{"port"},
	}
}

func (t *Tool) Validate(params map[string]any) error {
	port := tools.OptionalNumber(params, "port", 0)
	if port < 1 || port > 65535 || port != float64(int(port)) {
		return fmt.Errorf("port must be an integer in [1, 65535], got %v", port)
	}
	return nil
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	port := int(tools.OptionalNumber(params, "port", 0))
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port must be an integer in [1, 65535], got %v", params["port"])
	}
	description := tools.OptionalString(params, "description", "")
	checkServer := tools.OptionalBool(params, "check_server", true)

	sess, err := t.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	previewURL := fmt.Sprintf("https://%d-%s.%s", port, sess.ID(), t.domain)

	meta := map[string]any{
		"url":  previewURL,
		"port": port,
	}
	if description != "" {
		meta["description"] = description
	}

	if checkServer {
		// A failed probe is data for the caller, not an error: the link is
		// valid either way, the server just isn't up yet.
		responding, status := t.probe(ctx, sess, port)
		meta["server_responding"] = responding
		if status != 0 {
			meta["status_code"] = status
		}
	}

	t.logger.InfoContext(ctx, "web preview issued",
		slog.String("url", previewURL),
		slog.Int("port", port),
	)

	return &tools.Result{
		Output:   previewURL,
		Success:  true,
		Metadata: meta,
	}, nil
}

// probe curls the port from inside the workspace and reports whether a
// server answered, plus the HTTP status when one was returned.
func (t *Tool) probe(ctx context.Context, sess *session.Session, port int) (bool, int) {
	cmd := fmt.Sprintf("curl -s -o /dev/null -w '%%{http_code}' --max-time 5 http://localhost:%d/", port)
	res, err := sess.Exec(ctx, cmd, 15*time.Second)
	if err != nil || res.ExitCode != 0 {
		return false, 0
	}
	status, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil || status == 0 {
		return false, 0
	}
	return status < 500, status
}
