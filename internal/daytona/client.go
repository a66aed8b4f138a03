// Package daytona implements the HTTP client for the Daytona workspace and
// toolbox APIs. It is the only package that talks to the remote sandbox
// provider; everything above it goes through the session manager.
package daytona

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nkkko/daytona-mcp-interpreter/internal/config"
)

// ExecResult is the outcome of a remote process execution.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// FileInfo is the read-only snapshot returned by a remote stat.
type FileInfo struct {
	Size  int64  `json:"size"`
	Mode  string `json:"mode"`
	IsDir bool   `json:"isDir"`
}

// CloneRequest describes a repository clone into the workspace.
type CloneRequest struct {
	URL        string `json:"url"`
	Branch     string `json:"branch,omitempty"`
	TargetPath string `json:"path,omitempty"`
	Depth      int    `json:"depth,omitempty"`
	LFS        bool   `json:"lfs,omitempty"`
}

// Client is an HTTP client for a Daytona server. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	target     string
	image      string
	project    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Daytona API client from the given configuration.
func NewClient(cfg config.DaytonaConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		target:  cfg.Target,
		image:   cfg.Image,
		project: cfg.Project,
		timeout: cfg.Timeout(),
		logger:  logger,
	}
	if c.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !cfg.VerifySSL {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-out mirrors MCP_VERIFY_SSL
		}
		c.httpClient = &http.Client{
			Timeout:   0, // Deadlines come from per-request contexts.
			Transport: transport,
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health verifies connectivity to the Daytona server.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil, c.timeout)
}

// createWorkspaceRequest matches the Daytona workspace creation payload.
type createWorkspaceRequest struct {
	Name     string             `json:"name"`
	ID       string             `json:"id"`
	Projects []workspaceProject `json:"projects"`
	Target   string             `json:"target"`
}

type workspaceProject struct {
	Name    string            `json:"name"`
	EnvVars map[string]string `json:"envVars"`
	Image   string            `json:"image"`
	User    string            `json:"user"`
	Source  projectSource     `json:"source"`
}

type projectSource struct {
	Repository projectRepository `json:"repository"`
}

type projectRepository struct {
	URL    string `json:"url"`
	Branch string `json:"branch"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	SHA    string `json:"sha"`
	Source string `json:"source"`
}

// CreateWorkspace provisions a new workspace with the configured image and
// probes it with a trivial execution so callers get a known-good sandbox.
// A single provisioning attempt; retry policy lives in the session manager.
func (c *Client) CreateWorkspace(ctx context.Context, name string) (string, error) {
	req := createWorkspaceRequest{
		Name:   name,
		ID:     name,
		Target: c.target,
		Projects: []workspaceProject{{
			Name:    c.project,
			EnvVars: map[string]string{"PYTHONUNBUFFERED": "1"},
			Image:   c.image,
			User:    "root",
			Source: projectSource{Repository: projectRepository{
				URL:    "https://github.com/dbarnett/python-helloworld.git",
				Branch: "main",
				ID:     "placeholder",
				Name:   "placeholder",
				Owner:  "placeholder",
				SHA:    strings.Repeat("0", 40),
				Source: "local",
			}},
		}},
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/workspace", nil, req, &created, c.timeout); err != nil {
		return "", err
	}

	// Readiness probe: the workspace reports created before the project
	// container accepts executions.
	if err := c.awaitReady(ctx, created.ID); err != nil {
		return created.ID, err
	}

	c.logger.Info("workspace created", slog.String("workspace_id", created.ID))
	return created.ID, nil
}

// awaitReady polls with a trivial command until the workspace executes it.
func (c *Client) awaitReady(ctx context.Context, id string) error {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
		if _, lastErr = c.Exec(ctx, id, "true", 5*time.Second); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("workspace %s never became ready: %w", id, lastErr)
}

// DeleteWorkspace force-deletes the workspace. Idempotent on the remote
// side: a 404 is treated as already gone.
func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/workspace/"+url.PathEscape(id),
		url.Values{"force": {"true"}}, nil, nil, c.timeout)
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nil
	}
	return err
}

// execRequest matches the toolbox process execution payload.
type execRequest struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"` // Seconds.
}

// execResponse matches the toolbox process execution response.
type execResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
	Code   int    `json:"code"`
}

// Exec runs a shell command in the workspace and returns its outcome
// verbatim. A non-zero exit code is a successful call, not an error.
func (c *Client) Exec(ctx context.Context, id, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	// Round up so a sub-second budget doesn't truncate to zero and get
	// dropped by omitempty, silently reverting to the server default.
	req := execRequest{
		Command: command,
		Timeout: int((timeout + time.Second - 1) / time.Second),
	}

	var resp execResponse
	// The HTTP budget needs headroom over the remote execution budget so a
	// slow command surfaces as the remote's timeout, not ours.
	err := c.do(ctx, http.MethodPost, c.toolboxPath(id, "/process/execute"), nil, req, &resp, timeout+10*time.Second)
	if err != nil {
		return nil, err
	}

	return &ExecResult{
		Stdout:   strings.TrimRight(resp.Result, "\n"),
		Stderr:   strings.TrimRight(resp.Error, "\n"),
		ExitCode: resp.Code,
	}, nil
}

// StatFile returns remote file metadata.
func (c *Client) StatFile(ctx context.Context, id, path string) (*FileInfo, error) {
	var info FileInfo
	err := c.do(ctx, http.MethodGet, c.toolboxPath(id, "/files/info"),
		url.Values{"path": {path}}, nil, &info, c.timeout)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ReadFile downloads file content. offset/length select a byte range via
// an HTTP Range header; length < 0 reads to EOF.
func (c *Client) ReadFile(ctx context.Context, id, path string, offset, length int64) ([]byte, error) {
	q := url.Values{"path": {path}}
	u := c.baseURL + c.toolboxPath(id, "/files/download") + "?" + q.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &RemoteError{Op: "read_file", Err: err}
	}
	c.setHeaders(httpReq)
	if offset > 0 || length >= 0 {
		if length < 0 {
			httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		} else {
			httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.wrapTransportErr("read_file", err, c.timeout)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{Path: path}
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RemoteError{Op: "read_file", StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.wrapTransportErr("read_file", err, c.timeout)
	}
	// Servers without Range support return the whole file; slice locally so
	// chunked reads stay deterministic either way.
	if resp.StatusCode == http.StatusOK && (offset > 0 || length >= 0) {
		if offset >= int64(len(data)) {
			return nil, nil
		}
		data = data[offset:]
		if length >= 0 && length < int64(len(data)) {
			data = data[:length]
		}
	}
	return data, nil
}

// WriteFile uploads content to the given workspace path.
func (c *Client) WriteFile(ctx context.Context, id, path string, data []byte, overwrite bool) error {
	q := url.Values{
		"path":      {path},
		"overwrite": {strconv.FormatBool(overwrite)},
	}
	u := c.baseURL + c.toolboxPath(id, "/files/upload") + "?" + q.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return &RemoteError{Op: "write_file", Err: err}
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.wrapTransportErr("write_file", err, c.timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{Op: "write_file", StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}
	return nil
}

// GitClone clones a repository inside the workspace via the toolbox git API.
func (c *Client) GitClone(ctx context.Context, id string, req CloneRequest) error {
	// Cloning large repos can exceed a normal request budget.
	return c.do(ctx, http.MethodPost, c.toolboxPath(id, "/git/clone"), nil, req, nil, 3*c.timeout)
}

// toolboxPath builds the per-project toolbox endpoint path.
func (c *Client) toolboxPath(id, suffix string) string {
	return "/workspace/" + url.PathEscape(id) + "/" + url.PathEscape(c.project) + "/toolbox" + suffix
}

// do issues a JSON request and decodes the JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, timeout time.Duration) error {
	op := method + " " + path

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &RemoteError{Op: op, Err: fmt.Errorf("encoding request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, method, u, body)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	c.setHeaders(httpReq)
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.wrapTransportErr(op, err, timeout)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Path: path}
	case resp.StatusCode >= 300:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(data)))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &RemoteError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

// wrapTransportErr classifies transport failures into the error taxonomy.
func (c *Client) wrapTransportErr(op string, err error, budget time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Budget: budget}
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return &TimeoutError{Op: op, Budget: budget}
	}
	return &RemoteError{Op: op, Err: err}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
