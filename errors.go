package differ

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match with errors.Is; adapters wrap the
// underlying cause with %w so both the domain error and the cause remain
// inspectable.
var (
	// ErrNotFound indicates a path or revision absent in the queried state.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a patch no longer applies cleanly because the
	// target changed since the hunk was computed. The caller must re-diff
	// and retry; it is never retried automatically.
	ErrConflict = errors.New("conflict: target changed since diff")

	// ErrPreconditionFailed indicates an invalid state transition, such as
	// discarding a staged hunk. State is unchanged.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrAccessDenied indicates the repository or datastore refused access.
	ErrAccessDenied = errors.New("access denied")

	// ErrCorrupt indicates unreadable datastore content. The session may
	// continue with an empty annotation set.
	ErrCorrupt = errors.New("datastore corrupt")
)

// OperationError wraps an error with the operation and target that
// produced it.
type OperationError struct {
	Op   string // e.g. "stage", "read", "resolve"
	Path string // file path or revision, when known
	Err  error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error { return e.Err }

// OpError constructs an OperationError.
func OpError(op, path string, err error) error {
	return &OperationError{Op: op, Path: path, Err: err}
}
