package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/nkkko/daytona-mcp-interpreter/internal/daytona"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
)

// fakeTool is a scriptable tool that records whether Execute ran.
type fakeTool struct {
	name        string
	validateErr error
	result      *tools.Result
	execErr     error
	executed    bool
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake tool" }

func (f *fakeTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (f *fakeTool) Validate(map[string]any) error { return f.validateErr }

func (f *fakeTool) Execute(context.Context, map[string]any) (*tools.Result, error) {
	f.executed = true
	return f.result, f.execErr
}

func testServer(t *testing.T, ts ...tools.Tool) *Server {
	t.Helper()
	registry := tools.NewRegistry()
	for _, tool := range ts {
		registry.Register(tool)
	}
	srv, err := New("test", registry, nil, trace.NewNoopTracerProvider().Tracer(""),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func TestDispatchUnknownTool(t *testing.T) {
	srv := testServer(t)

	env := srv.Dispatch(context.Background(), "no_such_tool", nil)
	if env.Status != "error" {
		t.Fatalf("Status = %q, want error", env.Status)
	}
	if env.Error.Kind != kindValidation {
		t.Errorf("Kind = %q, want %q", env.Error.Kind, kindValidation)
	}
}

func TestDispatchValidationNeverExecutes(t *testing.T) {
	ft := &fakeTool{name: "t", validateErr: errors.New("missing required parameter: command")}
	srv := testServer(t, ft)

	env := srv.Dispatch(context.Background(), "t", map[string]any{})
	if env.Error == nil || env.Error.Kind != kindValidation {
		t.Fatalf("envelope = %+v, want validation error", env)
	}
	if ft.executed {
		t.Error("Execute ran despite failed validation")
	}
}

func TestDispatchOK(t *testing.T) {
	ft := &fakeTool{
		name:   "t",
		result: &tools.Result{Output: "done", Success: true, Metadata: map[string]any{"exit_code": 0}},
	}
	srv := testServer(t, ft)

	env := srv.Dispatch(context.Background(), "t", map[string]any{})
	if env.Status != "ok" {
		t.Fatalf("Status = %q, want ok", env.Status)
	}
	if !env.Success {
		t.Error("Success = false")
	}
	if env.Output != "done" {
		t.Errorf("Output = %q, want done", env.Output)
	}
}

func TestDispatchNonZeroExitIsOK(t *testing.T) {
	ft := &fakeTool{
		name:   "t",
		result: &tools.Result{Output: "err output", Success: false, Metadata: map[string]any{"exit_code": 3}},
	}
	srv := testServer(t, ft)

	env := srv.Dispatch(context.Background(), "t", map[string]any{})
	if env.Status != "ok" {
		t.Fatalf("Status = %q, want ok for non-zero exit", env.Status)
	}
	if env.Success {
		t.Error("Success = true for exit 3")
	}
	if env.Error != nil {
		t.Errorf("Error = %+v, want nil", env.Error)
	}
}

func TestDispatchClassifiesExecutionError(t *testing.T) {
	ft := &fakeTool{
		name:    "t",
		execErr: &daytona.ProvisioningError{Attempts: 3, Err: errors.New("no capacity")},
	}
	srv := testServer(t, ft)

	env := srv.Dispatch(context.Background(), "t", map[string]any{})
	if env.Status != "error" {
		t.Fatalf("Status = %q, want error", env.Status)
	}
	if env.Error.Kind != kindProvisioning {
		t.Errorf("Kind = %q, want %q", env.Error.Kind, kindProvisioning)
	}
}
