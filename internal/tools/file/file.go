// Package file implements the file transfer tools.
//
// Two tools are registered:
//   - file_download: stat the remote file, run it through the transfer
//     policy, and execute the chosen plan
//   - file_upload: write caller-supplied content into the workspace
//
// Downloads never move an oversized file by default: above the ceiling the
// caller must pick an explicit strategy or the policy rejects the request.
package file

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/nkkko/daytona-mcp-interpreter/internal/config"
	"github.com/nkkko/daytona-mcp-interpreter/internal/session"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
	"github.com/nkkko/daytona-mcp-interpreter/internal/transfer"
)

// ---- DownloadTool ----

// DownloadTool moves files out of the sandbox under the transfer policy.
type DownloadTool struct {
	sessions *session.Manager
	executor *transfer.Executor
	defaults config.TransferConfig
	logger   *slog.Logger
}

// NewDownloadTool creates the download tool.
func NewDownloadTool(sessions *session.Manager, executor *transfer.Executor, defaults config.TransferConfig, logger *slog.Logger) *DownloadTool {
	return &DownloadTool{
		sessions: sessions,
		executor: executor,
		defaults: defaults,
		logger:   logger,
	}
}

func (t *DownloadTool) Name() string { return "file_download" }
func (t *DownloadTool) Description() string {
	return "Download a file from the sandbox workspace; large files need an explicit download_option"
}

func (t *DownloadTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path":       map[string]any{"type": "string", "description": "Absolute path of the file inside the workspace"},
			"max_size_mb":     map[string]any{"type": "number", "description": "Size ceiling in MB above which an explicit download_option is required. Defaults to 5.0"},
			"download_option": map[string]any{"type": "string", "enum": []string{"auto", "download_partial", "convert_to_text", "compress_file", "force_download"}, "description": "How to handle files above the ceiling. Defaults to 'auto' (reject oversized)"},
			"chunk_size_kb":   map[string]any{"type": "number", "description": "Chunk length in KiB for download_partial. Defaults to 64"},
			"offset":          map[string]any{"type": "number", "description": "Byte offset for download_partial. Defaults to 0"},
		},
		"required": []string{"file_path"},
	}
}

func (t *DownloadTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "file_path"); err != nil {
		return err
	}
	if _, err := transfer.ParseStrategy(tools.OptionalString(params, "download_option", "")); err != nil {
		return err
	}
	if v := tools.OptionalNumber(params, "max_size_mb", t.defaults.MaxSizeMB()); v <= 0 {
		return fmt.Errorf("max_size_mb must be positive, got %v", v)
	}
	if v := tools.OptionalNumber(params, "chunk_size_kb", float64(t.defaults.ChunkKB())); v <= 0 {
		return fmt.Errorf("chunk_size_kb must be positive, got %v", v)
	}
	if v := tools.OptionalNumber(params, "offset", 0); v < 0 {
		return fmt.Errorf("offset must not be negative, got %v", v)
	}
	return nil
}

func (t *DownloadTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.RequireString(params, "file_path")
	if err != nil {
		return nil, err
	}
	strategy, err := transfer.ParseStrategy(tools.OptionalString(params, "download_option", ""))
	if err != nil {
		return nil, err
	}

	maxMB := tools.OptionalNumber(params, "max_size_mb", t.defaults.MaxSizeMB())
	req := transfer.Request{
		Path:        path,
		SizeCeiling: int64(maxMB * 1024 * 1024),
		Strategy:    strategy,
		ChunkSizeKB: int(tools.OptionalNumber(params, "chunk_size_kb", float64(t.defaults.ChunkKB()))),
		Offset:      int64(tools.OptionalNumber(params, "offset", 0)),
	}

	sess, err := t.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	info, err := sess.StatFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, &tools.ValidationError{Message: fmt.Sprintf("%s is a directory, not a file", path)}
	}

	meta := transfer.FileMetadata{
		Size: info.Size,
		Mime: transfer.ClassifyPath(path),
	}

	plan := transfer.Decide(meta, req)
	t.logger.InfoContext(ctx, "file download",
		slog.String("path", path),
		slog.Int64("size", meta.Size),
		slog.String("strategy", string(strategy)),
		slog.String("plan", string(plan.Kind)),
	)

	payload, err := t.executor.Run(ctx, sess, plan, meta, req)
	if err != nil {
		return nil, err
	}

	return &tools.Result{
		Output:  payload.Data,
		Success: true,
		Metadata: map[string]any{
			"path":              path,
			"encoding":          payload.Encoding,
			"strategy_used":     string(payload.StrategyUsed),
			"plan":              string(payload.Plan),
			"truncated":         payload.Truncated,
			"file_size_bytes":   payload.FileSize,
			"transferred_bytes": payload.TransferredBytes,
			"offset":            payload.Offset,
			"mime_class":        string(meta.Mime),
		},
	}, nil
}

// ---- UploadTool ----

// UploadTool writes caller-supplied content into the workspace.
type UploadTool struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewUploadTool creates the upload tool.
func NewUploadTool(sessions *session.Manager, logger *slog.Logger) *UploadTool {
	return &UploadTool{sessions: sessions, logger: logger}
}

func (t *UploadTool) Name() string        { return "file_upload" }
func (t *UploadTool) Description() string { return "Upload content to a file in the sandbox workspace" }

func (t *UploadTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{"type": "string", "description": "Absolute destination path inside the workspace"},
			"content":   map[string]any{"type": "string", "description": "Content to write: UTF-8 text, or base64 when encoding='base64'"},
			"encoding":  map[string]any{"type": "string", "enum": []string{"text", "base64"}, "description": "Content encoding. Defaults to 'text'"},
			"overwrite": map[string]any{"type": "boolean", "description": "Replace an existing file. Defaults to true"},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *UploadTool) Validate(params map[string]any) error {
	if _, err := tools.RequireString(params, "file_path"); err != nil {
		return err
	}
	content, err := tools.RequireString(params, "content")
	if err != nil {
		return err
	}
	switch enc := tools.OptionalString(params, "encoding", "text"); enc {
	case "text":
	case "base64":
		if _, err := base64.StdEncoding.DecodeString(content); err != nil {
			return fmt.Errorf("content is not valid base64: %w", err)
		}
	default:
		return fmt.Errorf("encoding must be \"text\" or \"base64\", got %q", enc)
	}
	return nil
}

func (t *UploadTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	path, err := tools.RequireString(params, "file_path")
	if err != nil {
		return nil, err
	}
	content, err := tools.RequireString(params, "content")
	if err != nil {
		return nil, err
	}
	overwrite := tools.OptionalBool(params, "overwrite", true)

	data := []byte(content)
	if enc := tools.OptionalString(params, "encoding", "text"); enc == "base64" {
		data, err = base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, fmt.Errorf("content is not valid base64: %w", err)
		}
	}

	sess, err := t.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	t.logger.InfoContext(ctx, "file upload",
		slog.String("path", path),
		slog.Int("bytes", len(data)),
		slog.Bool("overwrite", overwrite),
	)

	if err := sess.WriteFile(ctx, path, data, overwrite); err != nil {
		return nil, err
	}

	return &tools.Result{
		Output:  fmt.Sprintf("wrote %d bytes to %s", len(data), path),
		Success: true,
		Metadata: map[string]any{
			"path":       path,
			"size_bytes": len(data),
		},
	}, nil
}
