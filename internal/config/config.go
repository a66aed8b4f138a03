// Package config handles loading and validating the interpreter server
// configuration. Settings come from an optional YAML file with environment
// variable overrides; the Daytona credentials are env-only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for the server.
type Config struct {
	Daytona       DaytonaConfig        `json:"daytona" yaml:"daytona"`
	Session       SessionConfig        `json:"session" yaml:"session"`
	Transfer      TransferConfig       `json:"transfer" yaml:"transfer"`
	Server        ServerConfig         `json:"server" yaml:"server"`
	Log           LogConfig            `json:"log" yaml:"log"`
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
}

// DaytonaConfig configures the remote Daytona API client.
// Read once at process start; the client never re-reads it.
type DaytonaConfig struct {
	APIKey        string  `json:"-" yaml:"-"`                                                       // MCP_DAYTONA_API_KEY env var only, never from file.
	APIURL        string  `json:"api_url,omitempty" yaml:"api_url,omitempty"`                       // Default: http://localhost:3986. Override: MCP_DAYTONA_API_URL.
	TimeoutS      float64 `json:"timeout_s,omitempty" yaml:"timeout_s,omitempty"`                   // Per-request default. Default: 30. Override: MCP_DAYTONA_TIMEOUT.
	VerifySSL     bool    `json:"verify_ssl" yaml:"verify_ssl"`                                     // Default: false. Override: MCP_VERIFY_SSL.
	Target        string  `json:"target,omitempty" yaml:"target,omitempty"`                         // Target region/runner. Default: "local". Override: MCP_DAYTONA_TARGET.
	Image         string  `json:"image,omitempty" yaml:"image,omitempty"`                           // Workspace image. Default: python:3.10-slim.
	Project       string  `json:"project,omitempty" yaml:"project,omitempty"`                       // Project name inside the workspace. Default: "python".
	PreviewDomain string  `json:"preview_domain,omitempty" yaml:"preview_domain,omitempty"`         // Domain for web preview links, e.g. "try.daytona.app".
}

// Timeout returns the configured request timeout as a duration.
func (d DaytonaConfig) Timeout() time.Duration {
	if d.TimeoutS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.TimeoutS * float64(time.Second))
}

// SessionConfig configures sandbox session provisioning.
type SessionConfig struct {
	MaxCreateAttempts int     `json:"max_create_attempts,omitempty" yaml:"max_create_attempts,omitempty"` // Default: 3.
	CreateBackoffS    float64 `json:"create_backoff_s,omitempty" yaml:"create_backoff_s,omitempty"`       // Initial backoff. Default: 1.
}

// MaxAttempts returns the bounded retry count for workspace creation.
func (s SessionConfig) MaxAttempts() int {
	if s.MaxCreateAttempts <= 0 {
		return 3
	}
	return s.MaxCreateAttempts
}

// CreateBackoff returns the initial retry backoff.
func (s SessionConfig) CreateBackoff() time.Duration {
	if s.CreateBackoffS <= 0 {
		return time.Second
	}
	return time.Duration(s.CreateBackoffS * float64(time.Second))
}

// TransferConfig sets the file-transfer policy defaults. Callers can
// override both per invocation.
type TransferConfig struct {
	DefaultMaxSizeMB float64 `json:"default_max_size_mb,omitempty" yaml:"default_max_size_mb,omitempty"` // Size ceiling. Default: 5.0.
	DefaultChunkKB   int     `json:"default_chunk_kb,omitempty" yaml:"default_chunk_kb,omitempty"`       // Chunk size for partial transfers. Default: 64.
}

// MaxSizeMB returns the default transfer ceiling in megabytes.
func (t TransferConfig) MaxSizeMB() float64 {
	if t.DefaultMaxSizeMB <= 0 {
		return 5.0
	}
	return t.DefaultMaxSizeMB
}

// ChunkKB returns the default chunk size in KiB.
func (t TransferConfig) ChunkKB() int {
	if t.DefaultChunkKB <= 0 {
		return 64
	}
	return t.DefaultChunkKB
}

// ServerConfig configures the MCP transport.
type ServerConfig struct {
	Transport  string `json:"transport,omitempty" yaml:"transport,omitempty"`     // "stdio" (default) or "http".
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"` // For http transport. Default: ":8080".
}

// TransportKind returns the configured transport, defaulting to stdio.
func (s ServerConfig) TransportKind() string {
	if s.Transport == "" {
		return "stdio"
	}
	return s.Transport
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	if s.ListenAddr == "" {
		return ":8080"
	}
	return s.ListenAddr
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"` // "debug", "info" (default), "warn", "error".
}

// ObservabilityConfig configures metrics and tracing.
// When nil, all observability features are disabled with zero overhead.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures the Prometheus/health HTTP endpoint.
type MetricsConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"` // Default: ":9090".
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`               // Default: "/metrics".
}

// Addr returns the metrics listen address.
func (m *MetricsConfig) Addr() string {
	if m == nil || m.ListenAddr == "" {
		return ":9090"
	}
	return m.ListenAddr
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "daytona-mcp"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev
}

// Load reads the config file (if path is non-empty and exists), applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values.
// Env var names match the original interpreter for drop-in compatibility.
func (c *Config) applyEnv() {
	if v := os.Getenv("MCP_DAYTONA_API_KEY"); v != "" {
		c.Daytona.APIKey = v
	}
	if v := os.Getenv("MCP_DAYTONA_API_URL"); v != "" {
		c.Daytona.APIURL = v
	}
	if v := os.Getenv("MCP_DAYTONA_TIMEOUT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Daytona.TimeoutS = f
		}
	}
	if v := os.Getenv("MCP_VERIFY_SSL"); v != "" {
		c.Daytona.VerifySSL = v == "true" || v == "1"
	}
	if v := os.Getenv("MCP_DAYTONA_TARGET"); v != "" {
		c.Daytona.Target = v
	}
}

// Validate checks required settings and fills in defaults.
func (c *Config) Validate() error {
	if c.Daytona.APIKey == "" {
		return fmt.Errorf("MCP_DAYTONA_API_KEY environment variable is required")
	}
	switch c.Server.TransportKind() {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be \"stdio\" or \"http\", got %q", c.Server.Transport)
	}
	if c.Daytona.APIURL == "" {
		c.Daytona.APIURL = "http://localhost:3986"
	}
	if c.Daytona.Target == "" {
		c.Daytona.Target = "local"
	}
	if c.Daytona.Image == "" {
		c.Daytona.Image = "python:3.10-slim"
	}
	if c.Daytona.Project == "" {
		c.Daytona.Project = "python"
	}
	return nil
}
