package daytona

import (
	"fmt"
	"time"
)

// ProvisioningError reports that workspace creation failed after bounded
// retries. The session stays unprovisioned so the next call can retry.
type ProvisioningError struct {
	Attempts int
	Err      error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("workspace provisioning failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// RemoteError reports a failed remote operation. The session is assumed
// still usable unless the error indicates otherwise.
type RemoteError struct {
	Op         string // e.g. "exec", "read_file"
	StatusCode int    // HTTP status, 0 when transport-level.
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("daytona %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("daytona %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// TimeoutError reports a remote call exceeding its budget. The session
// remains live; a timeout does not imply the sandbox is unhealthy.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("daytona %s timed out after %s", e.Op, e.Budget)
}

// NotFoundError reports a missing remote file or workspace.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}
