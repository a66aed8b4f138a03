package git

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nkkko/daytona-mcp-interpreter/internal/config"
	"github.com/nkkko/daytona-mcp-interpreter/internal/daytona"
	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
)

type fakeAPI struct {
	clones []daytona.CloneRequest
}

func (f *fakeAPI) CreateWorkspace(context.Context, string) (string, error) { return "ws-1", nil }
func (f *fakeAPI) DeleteWorkspace(context.Context, string) error           { return nil }
func (f *fakeAPI) Exec(context.Context, string, string, time.Duration) (*daytona.ExecResult, error) {
	return &daytona.ExecResult{}, nil
}
func (f *fakeAPI) StatFile(context.Context, string, string) (*daytona.FileInfo, error) {
	return &daytona.FileInfo{}, nil
}
func (f *fakeAPI) ReadFile(context.Context, string, string, int64, int64) ([]byte, error) {
	return nil, nil
}
func (f *fakeAPI) WriteFile(context.Context, string, string, []byte, bool) error { return nil }

func (f *fakeAPI) GitClone(_ context.Context, _ string, req daytona.CloneRequest) error {
	f.clones = append(f.clones, req)
	return nil
}

func testTool(api session.API) *Tool {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTool(session.NewManager(api, config.SessionConfig{}, nil, logger), logger)
}

func TestValidate(t *testing.T) {
	tool := testTool(&fakeAPI{})

	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{"https", map[string]any{"repo_url": "https://github.com/org/repo.git"}, false},
		{"http", map[string]any{"repo_url": "http://git.internal/repo"}, false},
		{"missing", map[string]any{}, true},
		{"ssh refused", map[string]any{"repo_url": "ssh://git@github.com/org/repo.git"}, true},
		{"scp-like refused", map[string]any{"repo_url": "git@github.com:org/repo.git"}, true},
		{"file refused", map[string]any{"repo_url": "file:///etc/passwd"}, true},
		{"no host", map[string]any{"repo_url": "https:///repo.git"}, true},
		{"negative depth", map[string]any{"repo_url": "https://github.com/org/repo.git", "depth": -1.0}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tool.Validate(tc.params)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tc.params, err, tc.wantErr)
			}
		})
	}
}

func TestExecuteDefaults(t *testing.T) {
	api := &fakeAPI{}
	tool := testTool(api)

	res, err := tool.Execute(context.Background(), map[string]any{
		"repo_url": "https://github.com/org/sample.git",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Error("Success = false")
	}
	if len(api.clones) != 1 {
		t.Fatalf("clones = %d, want 1", len(api.clones))
	}

	req := api.clones[0]
	if req.TargetPath != "sample" {
		t.Errorf("TargetPath = %q, want repo name", req.TargetPath)
	}
	if req.Depth != 1 {
		t.Errorf("Depth = %d, want shallow default 1", req.Depth)
	}
	if req.LFS {
		t.Error("LFS = true by default")
	}
}

func TestExecuteExplicitOptions(t *testing.T) {
	api := &fakeAPI{}
	tool := testTool(api)

	_, err := tool.Execute(context.Background(), map[string]any{
		"repo_url":    "https://github.com/org/sample.git",
		"branch":      "develop",
		"target_path": "/workdir/src",
		"depth":       0.0,
		"lfs":         true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	req := api.clones[0]
	if req.Branch != "develop" {
		t.Errorf("Branch = %q, want develop", req.Branch)
	}
	if req.TargetPath != "/workdir/src" {
		t.Errorf("TargetPath = %q", req.TargetPath)
	}
	if req.Depth != 0 {
		t.Errorf("Depth = %d, want 0 (full history)", req.Depth)
	}
	if !req.LFS {
		t.Error("LFS = false")
	}
}

func TestRepoNameFallback(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/org/repo.git", "repo"},
		{"https://github.com/org/repo", "repo"},
		{"https://git.internal/", "repo"},
	}

	for _, tc := range tests {
		u, err := validateRepoURL(tc.url)
		if err != nil {
			t.Fatalf("validateRepoURL(%q): %v", tc.url, err)
		}
		if got := repoName(u); got != tc.want {
			t.Errorf("repoName(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
