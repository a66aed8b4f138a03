package transfer

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nkkko/daytona-mcp-interpreter/internal/daytona"
	"github.com/nkkko/daytona-mcp-interpreter/internal/observability"
)

// Sandbox is the narrow remote surface the executor needs.
// *session.Session implements it.
type Sandbox interface {
	Exec(ctx context.Context, command string, timeout time.Duration) (*daytona.ExecResult, error)
	ReadFile(ctx context.Context, path string, offset, length int64) ([]byte, error)
}

// TransferError reports a rejected or failed transfer, always carrying the
// strategy so the caller can retry with a different one.
type TransferError struct {
	Strategy Strategy
	Reason   string
	Err      error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer (%s): %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("transfer (%s): %s", e.Strategy, e.Reason)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Payload is the assembled caller-facing transfer result. Data is either
// UTF-8 text or base64, per Encoding; FileSize is the logical remote size
// so callers can distinguish it from the encoded length.
type Payload struct {
	Data             string   `json:"data"`
	Encoding         string   `json:"encoding"` // "text", "base64", or "gzip+base64"
	StrategyUsed     Strategy `json:"strategy_used"`
	Plan             PlanKind `json:"plan"`
	Truncated        bool     `json:"truncated"`
	FileSize         int64    `json:"file_size_bytes"`
	TransferredBytes int      `json:"transferred_bytes"`
	Offset           int64    `json:"offset,omitempty"`
}

// Executor performs the remote I/O for a transfer plan. It never partially
// assembles a payload: either the whole payload is returned or an error.
type Executor struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExecutor creates an executor. metrics may be nil.
func NewExecutor(metrics *observability.Metrics, logger *slog.Logger) *Executor {
	return &Executor{logger: logger, metrics: metrics}
}

// Run executes the plan against the sandbox.
func (e *Executor) Run(ctx context.Context, sbx Sandbox, plan Plan, meta FileMetadata, req Request) (*Payload, error) {
	e.metrics.RecordTransferDecision(string(req.Strategy), string(plan.Kind))

	var (
		payload *Payload
		err     error
	)
	switch plan.Kind {
	case PlanRejected:
		// Short-circuit: no remote call.
		return nil, &TransferError{Strategy: req.Strategy, Reason: plan.Reason}
	case PlanFull, PlanForced:
		payload, err = e.runFull(ctx, sbx, plan.Kind, meta, req)
	case PlanChunked:
		payload, err = e.runChunked(ctx, sbx, plan, meta, req)
	case PlanTextConversion:
		payload, err = e.runTextConversion(ctx, sbx, meta, req)
	case PlanCompressed:
		payload, err = e.runCompressed(ctx, sbx, meta, req)
	default:
		return nil, &TransferError{Strategy: req.Strategy, Reason: fmt.Sprintf("unknown plan kind %q", plan.Kind)}
	}
	if err != nil {
		return nil, err
	}

	e.metrics.AddTransferBytes(string(req.Strategy), payload.TransferredBytes)
	e.logger.Debug("transfer complete",
		slog.String("path", req.Path),
		slog.String("plan", string(payload.Plan)),
		slog.Int("bytes", payload.TransferredBytes),
		slog.Bool("truncated", payload.Truncated),
	)
	return payload, nil
}

// runFull moves the whole file in one read.
func (e *Executor) runFull(ctx context.Context, sbx Sandbox, kind PlanKind, meta FileMetadata, req Request) (*Payload, error) {
	data, err := sbx.ReadFile(ctx, req.Path, 0, -1)
	if err != nil {
		return nil, &TransferError{Strategy: req.Strategy, Err: err}
	}
	p := encodePayload(data, meta.Mime)
	p.StrategyUsed = req.Strategy
	p.Plan = kind
	p.FileSize = meta.Size
	return p, nil
}

// runChunked reads one chunk at the requested offset. Deterministic:
// the same plan always yields the same bytes.
func (e *Executor) runChunked(ctx context.Context, sbx Sandbox, plan Plan, meta FileMetadata, req Request) (*Payload, error) {
	data, err := sbx.ReadFile(ctx, req.Path, plan.Offset, plan.Length)
	if err != nil {
		return nil, &TransferError{Strategy: req.Strategy, Err: err}
	}
	p := encodePayload(data, meta.Mime)
	p.StrategyUsed = req.Strategy
	p.Plan = PlanChunked
	p.FileSize = meta.Size
	p.Offset = plan.Offset
	p.Truncated = plan.Offset+int64(len(data)) < meta.Size
	return p, nil
}

// runTextConversion extracts text remotely into a scratch file, then reads
// it: one conversion call plus one read.
func (e *Executor) runTextConversion(ctx context.Context, sbx Sandbox, meta FileMetadata, req Request) (*Payload, error) {
	converter := "cat"
	if meta.Mime == MimeBinary {
		converter = "strings"
	}
	tmp := scratchPath("txt")
	cmd := fmt.Sprintf("%s %s > %s", converter, shellQuote(req.Path), shellQuote(tmp))

	res, err := sbx.Exec(ctx, cmd, 0)
	if err != nil {
		return nil, &TransferError{Strategy: req.Strategy, Err: err}
	}
	if res.ExitCode != 0 {
		return nil, &TransferError{Strategy: req.Strategy, Reason: fmt.Sprintf("conversion failed (exit %d): %s", res.ExitCode, res.Stderr)}
	}
	defer e.removeScratch(ctx, sbx, tmp)

	// Converted output can still exceed the ceiling; cap the read and flag
	// the cut instead of moving an unbounded file.
	data, err := sbx.ReadFile(ctx, tmp, 0, req.SizeCeiling+1)
	if err != nil {
		return nil, &TransferError{Strategy: req.Strategy, Err: err}
	}
	truncated := false
	if int64(len(data)) > req.SizeCeiling {
		data = data[:req.SizeCeiling]
		truncated = true
	}

	return &Payload{
		Data:             string(data),
		Encoding:         "text",
		StrategyUsed:     req.Strategy,
		Plan:             PlanTextConversion,
		Truncated:        truncated,
		FileSize:         meta.Size,
		TransferredBytes: len(data),
	}, nil
}

// runCompressed compresses remotely before moving bytes, trading sandbox
// CPU for transfer size: one compression call plus one read. The complete
// file is moved, only smaller, so the payload is never truncated.
func (e *Executor) runCompressed(ctx context.Context, sbx Sandbox, meta FileMetadata, req Request) (*Payload, error) {
	tmp := scratchPath("gz")
	cmd := fmt.Sprintf("gzip -c %s > %s", shellQuote(req.Path), shellQuote(tmp))

	res, err := sbx.Exec(ctx, cmd, 0)
	if err != nil {
		return nil, &TransferError{Strategy: req.Strategy, Err: err}
	}
	if res.ExitCode != 0 {
		return nil, &TransferError{Strategy: req.Strategy, Reason: fmt.Sprintf("compression failed (exit %d): %s", res.ExitCode, res.Stderr)}
	}
	defer e.removeScratch(ctx, sbx, tmp)

	data, err := sbx.ReadFile(ctx, tmp, 0, -1)
	if err != nil {
		return nil, &TransferError{Strategy: req.Strategy, Err: err}
	}

	return &Payload{
		Data:             base64.StdEncoding.EncodeToString(data),
		Encoding:         "gzip+base64",
		StrategyUsed:     req.Strategy,
		Plan:             PlanCompressed,
		FileSize:         meta.Size,
		TransferredBytes: len(data),
	}, nil
}

// removeScratch best-effort deletes a scratch file; failures only logged.
func (e *Executor) removeScratch(ctx context.Context, sbx Sandbox, path string) {
	if _, err := sbx.Exec(ctx, "rm -f "+shellQuote(path), 0); err != nil {
		e.logger.Debug("scratch cleanup failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// encodePayload carries text content as UTF-8 and everything else as base64.
func encodePayload(data []byte, mime MimeClass) *Payload {
	if mime == MimeText && utf8.Valid(data) {
		return &Payload{
			Data:             string(data),
			Encoding:         "text",
			TransferredBytes: len(data),
		}
	}
	return &Payload{
		Data:             base64.StdEncoding.EncodeToString(data),
		Encoding:         "base64",
		TransferredBytes: len(data),
	}
}

// scratchPath returns a unique path under /tmp in the sandbox.
func scratchPath(ext string) string {
	return "/tmp/.transfer-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + "." + ext
}

// shellQuote single-quotes a path for safe interpolation into sh -c.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
