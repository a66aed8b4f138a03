// Package git implements the repository clone tool. The clone happens via
// the workspace's toolbox git API; no git credentials from the host are
// ever involved.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/nkkko/daytona-mcp-interpreter/internal/daytona"
	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
)

// Tool clones repositories into the sandbox workspace.
type Tool struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewTool creates the git clone tool.
func NewTool(sessions *session.Manager, logger *slog.Logger) *Tool {
	return &Tool{sessions: sessions, logger: logger}
}

func (t *Tool) Name() string        { return "git_clone" }
func (t *Tool) Description() string { return "Clone a git repository into the sandbox workspace" }

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"repo_url":    map[string]any{"type": "string", "description": "HTTP(S) URL of the repository"},
			"branch":      map[string]any{"type": "string", "description": "Branch to check out. Defaults to the remote default branch"},
			"target_path": map[string]any{"type": "string", "description": "Destination path inside the workspace. Defaults to the repository name"},
			"depth":       map[string]any{"type": "number", "description": "Clone depth. Defaults to 1 (shallow)"},
			"lfs":         map[string]any{"type": "boolean", "description": "Fetch git-lfs objects after clone. Defaults to false"},
		},
		"required": []string{"repo_url"},
	}
}

func (t *Tool) Validate(params map[string]any) error {
	repoURL, err := tools.RequireString(params, "repo_url")
	if err != nil {
		return err
	}
	if _, err := validateRepoURL(repoURL); err != nil {
		return err
	}
	if v := tools.OptionalNumber(params, "depth", 1); v < 0 {
		return fmt.Errorf("depth must not be negative, got %v", v)
	}
	return nil
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	repoURL, err := tools.RequireString(params, "repo_url")
	if err != nil {
		return nil, err
	}
	parsed, err := validateRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	target := tools.OptionalString(params, "target_path", "")
	if target == "" {
		target = repoName(parsed)
	}

	req := daytona.CloneRequest{
		URL:        repoURL,
		Branch:     tools.OptionalString(params, "branch", ""),
		TargetPath: target,
		Depth:      int(tools.OptionalNumber(params, "depth", 1)),
		LFS:        tools.OptionalBool(params, "lfs", false),
	}

	sess, err := t.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "git clone",
		slog.String("repo", repoURL),
		slog.String("target", target),
		slog.Int("depth", req.Depth),
	)

	if err := sess.GitClone(ctx, req); err != nil {
		return nil, err
	}

	return &tools.Result{
		Output:  fmt.Sprintf("cloned %s to %s", repoURL, target),
		Success: true,
		Metadata: map[string]any{
			"repo_url":    repoURL,
			"target_path": target,
			"branch":      req.Branch,
			"depth":       req.Depth,
			"lfs":         req.LFS,
		},
	}, nil
}

// validateRepoURL accepts only http(s) remotes; ssh and file remotes would
// need host credentials or host paths neither of which exist in the sandbox.
func validateRepoURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid repo_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("repo_url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("repo_url %q has no host", raw)
	}
	return u, nil
}

// repoName derives the default clone directory from the URL path.
func repoName(u *url.URL) string {
	name := path.Base(u.Path)
	name = strings.TrimSuffix(name, ".git")
	if name == "" || name == "." || name == "/" {
		return "repo"
	}
	return name
}
