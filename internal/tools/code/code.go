// Package code implements the Python interpreter tool. The snippet is
// uploaded to a scratch file and executed by path, never interpolated into
// a shell string, so quoting in user code cannot break the command.
package code

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
)

// Tool executes Python code in the sandbox workspace.
type Tool struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewTool creates a Python code execution tool.
func NewTool(sessions *session.Manager, logger *slog.Logger) *Tool {
	return &Tool{sessions: sessions, logger: logger}
}

func (t *Tool) Name() string        { return "code_exec" }
func (t *Tool) Description() string { return "Execute Python code in the sandbox workspace" }

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":    map[string]any{"type": "string", "description": "Python code to execute"},
			"timeout": map[string]any{"type": "string", "description": "Duration string (e.g. '30s'), overrides the default timeout"},
		},
		"required": []string{"code"},
	}
}

func (t *Tool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "code"); err != nil {
		return err
	}
	if timeout, ok := params["timeout"].(string); ok && timeout != "" {
		if _, err := time.ParseDuration(timeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", timeout, err)
		}
	}
	return nil
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	codeStr, err := tools.RequireString(params, "code")
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

	sess, err := t.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	scratch := "/tmp/.code-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + ".py"
	if err := sess.WriteFile(ctx, scratch, []byte(codeStr), true); err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "code tool executing",
		slog.Int("code_bytes", len(codeStr)),
		slog.String("scratch", scratch),
	)

	res, err := sess.Exec(ctx, "python3 "+scratch, timeout)
	if rmErr := cleanup(ctx, sess, scratch); rmErr != nil {
		t.logger.Debug("scratch cleanup failed", slog.String("error", rmErr.Error()))
	}
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

func cleanup(ctx context.Context, sess *session.Session, path string) error {
	_, err := sess.Exec(ctx, "rm -f "+path, 10*time.Second)
	return err
}
