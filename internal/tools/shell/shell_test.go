package shell

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

// fakeAPI scripts the remote exec outcome and records commands.
type fakeAPI struct {
	result   daytona.ExecResult
	commands []string
}

func (f *fakeAPI) CreateWorkspace(context.Context, string) (string, error) { return "ws-1", nil }
func (f *fakeAPI) DeleteWorkspace(context.Context, string) error           { return nil }

func (f *fakeAPI) Exec(_ context.Context, _ string, command string, _ time.Duration) (*daytona.ExecResult, error) {
	f.commands = append(f.commands, command)
	res := f.result
	return &res, nil
}

func (f *fakeAPI) StatFile(context.Context, string, string) (*daytona.FileInfo, error) {
	return &daytona.FileInfo{}, nil
}
func (f *fakeAPI) ReadFile(context.Context, string, string, int64, int64) ([]byte, error) {
	return nil, nil
}
func (f *fakeAPI) WriteFile(context.Context, string, string, []byte, bool) error { return nil }
func (f *fakeAPI) GitClone(context.Context, string, daytona.CloneRequest) error  { return nil }

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
		{"ok", map[string]any{"command": "ls"}, false},
		{"with timeout", map[string]any{"command": "ls", "timeout": "10s"}, false},
		{"missing command", map[string]any{}, true},
		{"empty command", map[string]any{"command": ""}, true},
		{"bad timeout", map[string]any{"command": "ls", "timeout": "ten seconds"}, true},
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

func TestExecuteNonZeroExit(t *testing.T) {
	api := &fakeAPI{result: daytona.ExecResult{Stdout: "partial", Stderr: "boom", ExitCode: 3}}
	tool := testTool(api)

	res, err := tool.Execute(context.Background(), map[string]any{"command": "exit 3"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("Success = true for exit 3")
	}
	if res.Metadata["exit_code"] != 3 {
		t.Errorf("exit_code = %v, want 3", res.Metadata["exit_code"])
	}
	if res.Output != "partial\nboom" {
		t.Errorf("Output = %q, want stdout+stderr", res.Output)
	}
}

func TestExecuteSuccess(t *testing.T) {
	api := &fakeAPI{result: daytona.ExecResult{Stdout: "hello", ExitCode: 0}}
	tool := testTool(api)

	res, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Error("Success = false for exit 0")
	}
	if res.Output != "hello" {
		t.Errorf("Output = %q, want hello", res.Output)
	}
}

func TestExecuteCwdWrapsCommand(t *testing.T) {
	api := &fakeAPI{}
	tool := testTool(api)

	_, err := tool.Execute(context.Background(), map[string]any{"command": "ls", "cwd": "/work dir"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(api.commands) != 1 {
		t.Fatalf("commands = %v, want one", api.commands)
	}
	want := "cd '/work dir' && { ls; }"
	if api.commands[0] != want {
		t.Errorf("command = %q, want %q", api.commands[0], want)
	}
}
