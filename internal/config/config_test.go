package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MCP_DAYTONA_API_KEY", "secret")
	t.Setenv("MCP_DAYTONA_API_URL", "")
	t.Setenv("MCP_DAYTONA_TIMEOUT", "")
	t.Setenv("MCP_VERIFY_SSL", "")
	t.Setenv("MCP_DAYTONA_TARGET", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Daytona.APIKey != "secret" {
		t.Errorf("APIKey = %q, want %q", cfg.Daytona.APIKey, "secret")
	}
	if cfg.Daytona.APIURL != "http://localhost:3986" {
		t.Errorf("APIURL = %q, want default", cfg.Daytona.APIURL)
	}
	if cfg.Daytona.Target != "local" {
		t.Errorf("Target = %q, want local", cfg.Daytona.Target)
	}
	if cfg.Daytona.Image != "python:3.10-slim" {
		t.Errorf("Image = %q, want python:3.10-slim", cfg.Daytona.Image)
	}
	if cfg.Daytona.Project != "python" {
		t.Errorf("Project = %q, want python", cfg.Daytona.Project)
	}
	if got := cfg.Daytona.Timeout(); got != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", got)
	}
	if got := cfg.Session.MaxAttempts(); got != 3 {
		t.Errorf("MaxAttempts() = %d, want 3", got)
	}
	if got := cfg.Transfer.MaxSizeMB(); got != 5.0 {
		t.Errorf("MaxSizeMB() = %v, want 5.0", got)
	}
	if got := cfg.Transfer.ChunkKB(); got != 64 {
		t.Errorf("ChunkKB() = %d, want 64", got)
	}
	if got := cfg.Server.TransportKind(); got != "stdio" {
		t.Errorf("TransportKind() = %q, want stdio", got)
	}
	if cfg.Observability != nil {
		t.Error("Observability non-nil by default")
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("MCP_DAYTONA_API_KEY", "")

	if _, err := Load(""); err == nil {
		t.Fatal("Load without MCP_DAYTONA_API_KEY returned nil error")
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	t.Setenv("MCP_DAYTONA_API_KEY", "secret")
	t.Setenv("MCP_DAYTONA_API_URL", "https://daytona.example.com")
	t.Setenv("MCP_DAYTONA_TIMEOUT", "12.5")
	t.Setenv("MCP_VERIFY_SSL", "true")
	t.Setenv("MCP_DAYTONA_TARGET", "")

	path := filepath.Join(t.TempDir(), "daytona-mcp.yaml")
	data := `
daytona:
  api_url: http://from-file:3986
  target: eu-1
  preview_domain: try.daytona.app
session:
  max_create_attempts: 5
transfer:
  default_max_size_mb: 10
  default_chunk_kb: 128
server:
  transport: http
  listen_addr: ":9999"
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Env beats file.
	if cfg.Daytona.APIURL != "https://daytona.example.com" {
		t.Errorf("APIURL = %q, want env override", cfg.Daytona.APIURL)
	}
	if got := cfg.Daytona.Timeout(); got != 12500*time.Millisecond {
		t.Errorf("Timeout() = %v, want 12.5s", got)
	}
	if !cfg.Daytona.VerifySSL {
		t.Error("VerifySSL = false, want env override true")
	}
	// File values survive where no env var is set.
	if cfg.Daytona.Target != "eu-1" {
		t.Errorf("Target = %q, want eu-1", cfg.Daytona.Target)
	}
	if cfg.Daytona.PreviewDomain != "try.daytona.app" {
		t.Errorf("PreviewDomain = %q", cfg.Daytona.PreviewDomain)
	}
	if got := cfg.Session.MaxAttempts(); got != 5 {
		t.Errorf("MaxAttempts() = %d, want 5", got)
	}
	if got := cfg.Transfer.MaxSizeMB(); got != 10 {
		t.Errorf("MaxSizeMB() = %v, want 10", got)
	}
	if got := cfg.Transfer.ChunkKB(); got != 128 {
		t.Errorf("ChunkKB() = %d, want 128", got)
	}
	if got := cfg.Server.TransportKind(); got != "http" {
		t.Errorf("TransportKind() = %q, want http", got)
	}
	if got := cfg.Server.Addr(); got != ":9999" {
		t.Errorf("Addr() = %q, want :9999", got)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadAPIKeyNeverFromFile(t *testing.T) {
	t.Setenv("MCP_DAYTONA_API_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "daytona-mcp.yaml")
	if err := os.WriteFile(path, []byte("daytona:\n  api_key: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daytona.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want env-only value", cfg.Daytona.APIKey)
	}
}

func TestLoadMissingFileIsNotFatal(t *testing.T) {
	t.Setenv("MCP_DAYTONA_API_KEY", "secret")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("Load with absent file = %v, want nil", err)
	}
}

func TestLoadInvalidTransport(t *testing.T) {
	t.Setenv("MCP_DAYTONA_API_KEY", "secret")

	path := filepath.Join(t.TempDir(), "daytona-mcp.yaml")
	if err := os.WriteFile(path, []byte("server:\n  transport: grpc\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load with transport=grpc returned nil error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	t.Setenv("MCP_DAYTONA_API_KEY", "secret")

	path := filepath.Join(t.TempDir(), "daytona-mcp.yaml")
	if err := os.WriteFile(path, []byte("daytona: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load with malformed yaml returned nil error")
	}
}

func TestMetricsConfigAddr(t *testing.T) {
	var nilCfg *MetricsConfig
	if got := nilCfg.Addr(); got != ":9090" {
		t.Errorf("nil MetricsConfig Addr() = %q, want :9090", got)
	}
	cfg := &MetricsConfig{ListenAddr: ":7070"}
	if got := cfg.Addr(); got != ":7070" {
		t.Errorf("Addr() = %q, want :7070", got)
	}
}
