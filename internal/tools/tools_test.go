package tools

import (
	"context"
	"strings"
	"testing"
)

type stubTool struct{ name string }

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return "stub" }
func (s *stubTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (s *stubTool) Validate(map[string]any) error {
	return nil
}
func (s *stubTool) Execute(context.Context, map[string]any) (*Result, error) {
	return &Result{Success: true}, nil
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"code_exec", "shell_exec", "file_download"}
	for _, n := range names {
		r.Register(&stubTool{name: n})
	}

	got := r.List()
	if len(got) != len(names) {
		t.Fatalf("List() = %v, want %v", got, names)
	}
	for i := range names {
		if got[i] != names[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], names[i])
		}
	}

	if r.Get("shell_exec") == nil {
		t.Error("Get(shell_exec) = nil")
	}
	if r.Get("absent") != nil {
		t.Error("Get(absent) != nil")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "dup"})

	defer func() {
		if recover() == nil {
			t.Error("duplicate registration did not panic")
		}
	}()
	r.Register(&stubTool{name: "dup"})
}

func TestTruncateOutput(t *testing.T) {
	long := strings.Repeat("x", 100)

	tests := []struct {
		name     string
		in       string
		max      int
		wantLen  int
		wantCut  bool
	}{
		{"short untouched", "hello", 100, 5, false},
		{"exact untouched", long, 100, 100, false},
		{"cut with notice", long, 50, 50, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateOutput(tc.in, tc.max)
			if len(got) != tc.wantLen {
				t.Errorf("len = %d, want %d", len(got), tc.wantLen)
			}
			if cut := strings.Contains(got, "[output truncated]"); cut != tc.wantCut {
				t.Errorf("truncation notice = %v, want %v", cut, tc.wantCut)
			}
		})
	}
}

func TestRequireString(t *testing.T) {
	params := map[string]any{"command": "ls", "count": 3.0, "empty": ""}

	if got, err := RequireString(params, "command"); err != nil || got != "ls" {
		t.Errorf("RequireString(command) = %q, %v", got, err)
	}
	if _, err := RequireString(params, "missing"); err == nil {
		t.Error("missing key returned nil error")
	}
	if _, err := RequireString(params, "count"); err == nil {
		t.Error("non-string returned nil error")
	}
	if _, err := RequireString(params, "empty"); err == nil {
		t.Error("empty string returned nil error")
	}
}

func TestOptionalHelpers(t *testing.T) {
	params := map[string]any{
		"s": "value",
		"n": 42.0,
		"i": 7,
		"b": true,
	}

	if got := OptionalString(params, "s", "def"); got != "value" {
		t.Errorf("OptionalString = %q", got)
	}
	if got := OptionalString(params, "absent", "def"); got != "def" {
		t.Errorf("OptionalString default = %q", got)
	}
	if got := OptionalNumber(params, "n", 0); got != 42 {
		t.Errorf("OptionalNumber float = %v", got)
	}
	if got := OptionalNumber(params, "i", 0); got != 7 {
		t.Errorf("OptionalNumber int = %v", got)
	}
	if got := OptionalNumber(params, "absent", 9.5); got != 9.5 {
		t.Errorf("OptionalNumber default = %v", got)
	}
	if got := OptionalBool(params, "b", false); !got {
		t.Error("OptionalBool = false")
	}
	if got := OptionalBool(params, "absent", true); !got {
		t.Error("OptionalBool default = false")
	}
}
