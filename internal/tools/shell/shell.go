// Package shell implements the sandboxed shell execution tool. Commands
// run inside the remote workspace — never on the host.
package shell

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
)

// Tool executes shell commands inside the sandbox workspace.
type Tool struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewTool creates a shell tool backed by the session manager.
func NewTool(sessions *session.Manager, logger *slog.Logger) *Tool {
	return &Tool{sessions: sessions, logger: logger}
}

func (t *Tool) Name() string        { return "shell_exec" }
func (t *Tool) Description() string { return "Execute a shell command in the sandbox workspace" }

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "The shell command to execute"},
			"timeout": map[string]any{"type": "string", "description": "Duration string (e.g. '10s', '1m'), overrides the default timeout"},
			"cwd":     map[string]any{"type": "string", "description": "Working directory inside the workspace"},
		},
		"required": []string{"command"},
	}
}

func (t *Tool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "command"); err != nil {
		return err
	}
	if timeout, ok := params["timeout"].(string); ok && timeout != "" {
		if _, err := time.ParseDuration(timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", timeout, err)
		}
	}
	return nil
}

// Execute runs the command in the workspace. A non-zero exit code is a
// normal result, not an error: callers branch on exit_code.
func (t *Tool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	command, err := tools.RequireString(params, "command")
	if err != nil {
		return nil, err
	}

	var timeout time.Duration
	if v, ok := params["timeout"].(string); ok && v != "" {
		timeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", v, err)
		}
	}
	if cwd := tools.OptionalString(params, "cwd", ""); cwd != "" {
		command = fmt.Sprintf("cd %s && { %s; }", shellQuote(cwd), command)
	}

	sess, err := t.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "shell tool executing", slog.String("command", command))

	res, err := sess.Exec(ctx, command, timeout)
	if err != nil {
		return nil, err
	}

	output := res.Stdout
	if res.Stderr != "" {
		if output != "" {
			output += "\n"
		}
		output += res.Stderr
	}

	return &tools.Result{
		Output:  tools.TruncateOutput(output, tools.MaxOutputBytes),
		Success: res.ExitCode == 0,
		Metadata: map[string]any{
			"exit_code": res.ExitCode,
			"stdout":    tools.TruncateOutput(res.Stdout, tools.MaxOutputBytes),
			"stderr":    tools.TruncateOutput(res.Stderr, tools.MaxOutputBytes),
		},
	}, nil
}

// shellQuote single-quotes a string for safe interpolation into sh.
func shellQuote(s string) string {
	out := "'"
	for _, r := range s {
		if r == '\'' {
			out += `'\''`
			continue
		}
		out += string(r)
	}
	return out + "'"
}
