// Package tools defines the tool interface and registry. Each tool
// declares a JSON Schema for its arguments and validates them before any
// sandbox access happens.
package tools

import (
	"context"
	"fmt"
	"sync"
)

// Tool is the interface all tools must implement.
type Tool interface {
	// Name returns the tool's unique identifier (e.g. "shell_exec").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// InputSchema returns a JSON Schema object describing the tool's
	// parameters, sent to MCP clients as the tool's input schema.
	InputSchema() map[string]any

	// Validate checks that params are well-formed before execution. The
	// router calls this first so malformed requests fail fast and never
	// provision a sandbox.
	Validate(params map[string]any) error

	// Execute runs the tool with the given parameters.
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// Result is the outcome of a tool execution.
type Result struct {
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Success  bool           `json:"success"`
}

// ValidationError rejects a request whose arguments turn out invalid
// against live sandbox state — conditions Validate cannot see, like a
// download path naming a directory. The router reports it with the same
// stable kind as a pre-execution validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// MaxOutputBytes is the default cap for tool output to prevent OOM.
const MaxOutputBytes = 1 << 20 // 1 MB

// TruncateOutput caps a string at maxBytes, appending a truncation notice if cut.
func TruncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	const suffix = "\n... [output truncated]"
	if maxBytes <= len(suffix) {
		return s[:maxBytes]
	}
	return s[:maxBytes-len(suffix)] + suffix
}

// RequireString extracts a required non-empty string param.
func RequireString(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s must be a string, got %T", key, v)
	}
	if s == "" {
		return "", fmt.Errorf("parameter %s must not be empty", key)
	}
	return s, nil
}

// OptionalString extracts an optional string param with a default.
func OptionalString(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}

// OptionalNumber extracts an optional numeric param with a default.
// JSON numbers arrive as float64; integers typed directly also accepted.
func OptionalNumber(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// OptionalBool extracts an optional boolean param with a default.
func OptionalBool(params map[string]any, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

// Registry holds available tools keyed by name.
// Thread-safe for concurrent reads; writes should only happen at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Panics on duplicate names (startup config error, not runtime).
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		panic("duplicate tool registration: " + t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
}

// Get returns the tool by name, or nil if not found.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all registered tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// All returns all registered tools in registration order.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.tools[name])
	}
	return result
}
