// Package session owns the lifecycle of the single sandbox workspace for
// the process. Everything above it reaches the remote sandbox through a
// Session handle; nothing else holds the workspace identifier.
package session

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkkko/daytona-mcp-interpreter/internal/config"
	"github.com/nkkko/daytona-mcp-interpreter/internal/daytona"
	"github.com/nkkko/daytona-mcp-interpreter/internal/observability"
)

// API is the remote sandbox surface the manager and session delegate to.
// *daytona.Client implements it; tests substitute a fake.
type API interface {
	CreateWorkspace(ctx context.Context, name string) (string, error)
	DeleteWorkspace(ctx context.Context, id string) error
	Exec(ctx context.Context, id, command string, timeout time.Duration) (*daytona.ExecResult, error)
	StatFile(ctx context.Context, id, path string) (*daytona.FileInfo, error)
	ReadFile(ctx context.Context, id, path string, offset, length int64) ([]byte, error)
	WriteFile(ctx context.Context, id, path string, data []byte, overwrite bool) error
	GitClone(ctx context.Context, id string, req daytona.CloneRequest) error
}

// Session is the handle to the live workspace. It delegates every call to
// the remote API bound to its workspace ID and is valid until Teardown.
// Every delegating method holds the manager's calls lock shared, so
// Teardown can wait out in-flight remote calls before destroying the
// workspace.
type Session struct {
	id        string
	createdAt time.Time
	api       API
	calls     *sync.RWMutex
}

// ID returns the remote workspace identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the provisioning time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Exec runs a command in the workspace.
func (s *Session) Exec(ctx context.Context, command string, timeout time.Duration) (*daytona.ExecResult, error) {
	s.calls.RLock()
	defer s.calls.RUnlock()
	return s.api.Exec(ctx, s.id, command, timeout)
}

// StatFile returns metadata for a workspace file.
func (s *Session) StatFile(ctx context.Context, path string) (*daytona.FileInfo, error) {
	s.calls.RLock()
	defer s.calls.RUnlock()
	return s.api.StatFile(ctx, s.id, path)
}

// ReadFile reads workspace file content; length < 0 reads to EOF.
func (s *Session) ReadFile(ctx context.Context, path string, offset, length int64) ([]byte, error) {
	s.calls.RLock()
	defer s.calls.RUnlock()
	return s.api.ReadFile(ctx, s.id, path, offset, length)
}

// WriteFile writes content to a workspace file.
func (s *Session) WriteFile(ctx context.Context, path string, data []byte, overwrite bool) error {
	s.calls.RLock()
	defer s.calls.RUnlock()
	return s.api.WriteFile(ctx, s.id, path, data, overwrite)
}

// GitClone clones a repository into the workspace.
func (s *Session) GitClone(ctx context.Context, req daytona.CloneRequest) error {
	s.calls.RLock()
	defer s.calls.RUnlock()
	return s.api.GitClone(ctx, s.id, req)
}

// Manager guarantees at most one live workspace per process: created
// lazily on first use, destroyed exactly once on teardown. Creation is
// serialized so concurrent callers observing no session coordinate on a
// single remote create.
type Manager struct {
	api     API
	cfg     config.SessionConfig
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	calls   sync.RWMutex // Held shared for the duration of each session call.
	current *Session
	closed  bool
}

// NewManager creates a session manager. metrics may be nil.
func NewManager(api API, cfg config.SessionConfig, metrics *observability.Metrics, logger *slog.Logger) *Manager {
	return &Manager{
		api:     api,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Ensure returns the live session, creating one if none exists. Creation
// retries with exponential backoff up to the configured bound; after
// exhaustion a *daytona.ProvisioningError surfaces and the manager stays
// unprovisioned so the next call can retry.
func (m *Manager) Ensure(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, &daytona.ProvisioningError{Attempts: 0, Err: context.Canceled}
	}
	if m.current != nil {
		return m.current, nil
	}

	start := time.Now()
	var lastErr error
	attempts := m.cfg.MaxAttempts()

	for attempt := 1; attempt <= attempts; attempt++ {
		name := workspaceName()
		id, err := m.api.CreateWorkspace(ctx, name)
		if err == nil {
			m.current = &Session{id: id, createdAt: time.Now(), api: m.api, calls: &m.calls}
			m.metrics.RecordSandboxOp("create", "ok")
			m.metrics.ObserveProvision(time.Since(start))
			m.logger.Info("sandbox session created",
				slog.String("workspace_id", id),
				slog.Int("attempt", attempt),
			)
			return m.current, nil
		}
		lastErr = err
		m.metrics.RecordSandboxOp("create", "error")

		// A half-created workspace must not leak.
		if id != "" {
			if delErr := m.api.DeleteWorkspace(ctx, id); delErr != nil {
				m.logger.Warn("cleanup of failed workspace",
					slog.String("workspace_id", id),
					slog.String("error", delErr.Error()),
				)
			}
		}

		m.logger.Warn("workspace creation failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()),
		)

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &daytona.ProvisioningError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(backoff(m.cfg.CreateBackoff(), attempt)):
		}
	}

	return nil, &daytona.ProvisioningError{Attempts: attempts, Err: lastErr}
}

// Live reports whether a session currently exists.
func (m *Manager) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Teardown destroys the live workspace, if any. Idempotent: repeated calls
// never issue a second remote delete. The delete waits for in-flight
// session calls to drain — it runs after, never concurrently with, a
// remote call on the same session. Deletion errors are logged and
// swallowed — teardown runs outside any caller's request and must not fail
// it. After Teardown the manager refuses new sessions.
func (m *Manager) Teardown(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	id := m.current.id
	m.current = nil
	m.mu.Unlock()

	// Deleting the workspace under an in-flight Exec or ReadFile would
	// yank it out from under the handler mid-call.
	m.calls.Lock()
	defer m.calls.Unlock()

	if err := m.api.DeleteWorkspace(ctx, id); err != nil {
		m.metrics.RecordSandboxOp("delete", "error")
		m.logger.Error("workspace deletion failed",
			slog.String("workspace_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	m.metrics.RecordSandboxOp("delete", "ok")
	m.logger.Info("sandbox session destroyed", slog.String("workspace_id", id))
}

// workspaceName produces a unique workspace name in the original
// interpreter's "python-<hex>" form.
func workspaceName() string {
	return "python-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// backoff returns exponential backoff with jitter, capped at 30s.
func backoff(base time.Duration, attempt int) time.Duration {
	// Clamp the exponent: a large attempt count must saturate at the cap,
	// not shift the duration into overflow.
	shift := attempt - 1
	if shift > 20 {
		shift = 20
	}
	d := base << shift
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	if d < 2*time.Millisecond {
		return d
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}
