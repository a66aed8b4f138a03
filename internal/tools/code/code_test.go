package code

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nkkko/daytona-mcp-interpreter/internal/config"
	"github.com/nkkko/daytona-mcp-interpreter/internal/daytona"
	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
)

type fakeAPI struct {
	result   daytona.ExecResult
	commands []string
	writes   map[string][]byte
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

func (f *fakeAPI) WriteFile(_ context.Context, _ string, path string, data []byte, _ bool) error {
	if f.writes == nil {
		f.writes = map[string][]byte{}
	}
	f.writes[path] = data
	return nil
}

func (f *fakeAPI) GitClone(context.Context, string, daytona.CloneRequest) error { return nil }

func testTool(api session.API) *Tool {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTool(session.NewManager(api, config.SessionConfig{}, nil, logger), logger)
}

func TestValidate(t *testing.T) {
	tool := testTool(&fakeAPI{})

	if err := tool.Validate(map[string]any{"code": "print('hi')"}); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := tool.Validate(map[string]any{}); err == nil {
		t.Error("missing code accepted")
	}
	if err := tool.Validate(map[string]any{"code": "x", "timeout": "bogus"}); err == nil {
		t.Error("bad timeout accepted")
	}
}

func TestExecuteUploadsScriptByPath(t *testing.T) {
	// Quoting in user code must not be able to break the command, so the
	// snippet is uploaded and run by path.
	snippet := `print("it's got 'quotes'; $(and subshells)")`
	api := &fakeAPI{result: daytona.ExecResult{Stdout: "ok", ExitCode: 0}}
	tool := testTool(api)

	res, err := tool.Execute(context.Background(), map[string]any{"code": snippet})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Error("Success = false")
	}

	var scratch string
	for path, data := range api.writes {
		scratch = path
		if string(data) != snippet {
			t.Errorf("uploaded code = %q, want snippet verbatim", data)
		}
	}
	if scratch == "" {
		t.Fatal("no script uploaded")
	}
	if !strings.HasPrefix(scratch, "/tmp/.code-") || !strings.HasSuffix(scratch, ".py") {
		t.Errorf("scratch path = %q", scratch)
	}

	if len(api.commands) != 2 {
		t.Fatalf("commands = %v, want run + cleanup", api.commands)
	}
	if api.commands[0] != "python3 "+scratch {
		t.Errorf("run command = %q, want python3 %s", api.commands[0], scratch)
	}
	if api.commands[1] != "rm -f "+scratch {
		t.Errorf("cleanup command = %q", api.commands[1])
	}
	if strings.Contains(api.commands[0], "quotes") {
		t.Error("user code leaked into the shell command")
	}
}

func TestExecuteTracebackIsResult(t *testing.T) {
	api := &fakeAPI{result: daytona.ExecResult{Stderr: "Traceback (most recent call last): ...", ExitCode: 1}}
	tool := testTool(api)

	res, err := tool.Execute(context.Background(), map[string]any{"code": "1/0"})
	if err != nil {
		t.Fatalf("Execute with failing code returned error: %v", err)
	}
	if res.Success {
		t.Error("Success = true for exit 1")
	}
	if res.Metadata["exit_code"] != 1 {
		t.Errorf("exit_code = %v, want 1", res.Metadata["exit_code"])
	}
	if !strings.Contains(res.Output, "Traceback") {
		t.Errorf("Output = %q, want traceback", res.Output)
	}
}
