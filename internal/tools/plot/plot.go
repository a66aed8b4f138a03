// Package plot implements the plot generation tool: Python code runs with
// a headless matplotlib backend in a scratch directory, and every image
// file it produces is collected and returned base64-encoded.
package plot

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
)

var supportedFormats = map[string]bool{
	"png": true,
	"svg": true,
	"pdf": true,
}

// Tool renders plots from Python code inside the sandbox.
type Tool struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewTool creates a plot generation tool.
func NewTool(sessions *session.Manager, logger *slog.Logger) *Tool {
	return &Tool{sessions: sessions, logger: logger}
}

func (t *Tool) Name() string { return "generate_plot" }
func (t *Tool) Description() string {
	return "Run Python plotting code (matplotlib, headless) and return the generated images"
}

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":   map[string]any{"type": "string", "description": "Python code that saves one or more figures to the current directory"},
			"format": map[string]any{"type": "string", "enum": []string{"png", "svg", "pdf"}, "description": "Image format to collect. Defaults to 'png'"},
		},
		"required": []string{"code"},
	}
}

func (t *Tool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "code"); err != nil {
		return err
	}
	if format, ok := params["format"].(string); ok && format != "" && !supportedFormats[format] {
		return fmt.Errorf("format must be one of png, svg, pdf, got %q", format)
	}
	return nil
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	codeStr, err := tools.RequireString(params, "code")
	if err != nil {
		return nil, err
	}
	format := tools.OptionalString(params, "format", "png")

	sess, err := t.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	dir := "/tmp/.plots-" + id
	script := dir + "/plot.py"

	if _, err := sess.Exec(ctx, "mkdir -p "+dir, 10*time.Second); err != nil {
		return nil, err
	}
	defer t.cleanup(ctx, sess, dir)

	if err := sess.WriteFile(ctx, script, []byte(codeStr), true); err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "plot tool executing", slog.String("dir", dir))

	run := fmt.Sprintf("cd %s && MPLBACKEND=Agg python3 plot.py", dir)
	res, err := sess.Exec(ctx, run, 0)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		// The plotting code itself failed; report it like any execution.
		return &tools.Result{
			Output:  tools.TruncateOutput(res.Stderr, tools.MaxOutputBytes),
			Success: false,
			Metadata: map[string]any{
				"exit_code": res.ExitCode,
				"stdout":    tools.TruncateOutput(res.Stdout, tools.MaxOutputBytes),
				"stderr":    tools.TruncateOutput(res.Stderr, tools.MaxOutputBytes),
			},
		}, nil
	}

	names, err := t.listImages(ctx, sess, dir, format)
	if err != nil {
		return nil, err
	}

	images := make([]map[string]any, 0, len(names))
	for _, name := range names {
		data, err := sess.ReadFile(ctx, dir+"/"+name, 0, -1)
		if err != nil {
			return nil, err
		}
		images = append(images, map[string]any{
			"name":     name,
			"format":   format,
			"encoding": "base64",
			"data":     base64.StdEncoding.EncodeToString(data),
		})
	}

	return &tools.Result{
		Output:  fmt.Sprintf("generated %d %s image(s)", len(images), format),
		Success: true,
		Metadata: map[string]any{
			"images": images,
			"stdout": tools.TruncateOutput(res.Stdout, tools.MaxOutputBytes),
		},
	}, nil
}

// listImages returns the image file names produced in dir, sorted by ls.
func (t *Tool) listImages(ctx context.Context, sess *session.Session, dir, format string) ([]string, error) {
	res, err := sess.Exec(ctx, fmt.Sprintf("ls -1 %s 2>/dev/null || true", dir), 10*time.Second)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || !strings.HasSuffix(name, "."+format) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (t *Tool) cleanup(ctx context.Context, sess *session.Session, dir string) {
	if _, err := sess.Exec(ctx, "rm -rf "+dir, 10*time.Second); err != nil {
		t.logger.Debug("plot dir cleanup failed", slog.String("dir", dir), slog.String("error", err.Error()))
	}
}
