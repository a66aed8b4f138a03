package server

import (
	"errors"

	"github.com/nkkko/daytona-mcp-interpreter/internal/daytona"
	"github.com/nkkko/daytona-mcp-interpreter/internal/tools"
	"github.com/nkkko/daytona-mcp-interpreter/internal/transfer"
)

// Envelope is the uniform outcome returned for every tool invocation.
// Created fresh per invocation, never mutated after construction. A
// non-zero exit code from an execution tool is an OK envelope; only
// infrastructure failures produce the error variant.
type Envelope struct {
	Status   string         `json:"status"` // "ok" or "error"
	Output   string         `json:"output,omitempty"`
	Success  bool           `json:"success"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Error    *ErrorInfo     `json:"error,omitempty"`
}

// ErrorInfo describes a failed invocation with a stable kind.
type ErrorInfo struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Strategy string `json:"strategy,omitempty"` // Attempted transfer strategy, when relevant.
}

// Stable error kinds.
const (
	kindValidation   = "validation_error"
	kindProvisioning = "provisioning_error"
	kindRemote       = "remote_error"
	kindTimeout      = "timeout_error"
	kindTransfer     = "transfer_error"
	kindNotFound     = "not_found"
	kindInternal     = "internal_error"
)

// okEnvelope wraps a successful tool result.
func okEnvelope(res *tools.Result) *Envelope {
	return &Envelope{
		Status:   "ok",
		Output:   res.Output,
		Success:  res.Success,
		Metadata: res.Metadata,
	}
}

// errorEnvelope wraps an explicit kind and message.
func errorEnvelope(kind, message string) *Envelope {
	return &Envelope{
		Status: "error",
		Error:  &ErrorInfo{Kind: kind, Message: message},
	}
}

// classifyError converts any error from the tool layer into an envelope.
// This is the single boundary where the error taxonomy becomes caller-facing.
func classifyError(err error) *Envelope {
	var (
		transferErr   *transfer.TransferError
		provErr       *daytona.ProvisioningError
		timeoutErr    *daytona.TimeoutError
		notFoundErr   *daytona.NotFoundError
		remoteErr     *daytona.RemoteError
		validationErr *tools.ValidationError
	)
	switch {
	case errors.As(err, &validationErr):
		return errorEnvelope(kindValidation, validationErr.Error())
	case errors.As(err, &transferErr):
		return &Envelope{
			Status: "error",
			Error: &ErrorInfo{
				Kind:     kindTransfer,
				Message:  transferErr.Error(),
				Strategy: string(transferErr.Strategy),
			},
		}
	case errors.As(err, &provErr):
		return errorEnvelope(kindProvisioning, provErr.Error())
	case errors.As(err, &timeoutErr):
		return errorEnvelope(kindTimeout, timeoutErr.Error())
	case errors.As(err, &notFoundErr):
		return errorEnvelope(kindNotFound, notFoundErr.Error())
	case errors.As(err, &remoteErr):
		return errorEnvelope(kindRemote, remoteErr.Error())
	default:
		return errorEnvelope(kindInternal, err.Error())
	}
}
