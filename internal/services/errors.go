package services

import (
	"errors"
	"fmt"

	"github.com/mailfold/mailfold/internal/engine"
)

// Standard folder-mutation errors. Validation errors are returned
// synchronously before any engine call; the rest classify engine outcomes.
var (
	// ErrBusy rejects a mutation request while another one is in flight.
	ErrBusy = errors.New("another folder operation is in progress")

	// ErrEmptyName rejects a proposed folder name that is empty after
	// trimming whitespace.
	ErrEmptyName = errors.New("folder name cannot be empty")

	// ErrAlreadyExists rejects a name colliding with a sibling user folder.
	// Also produced when the server reports a collision asynchronously.
	ErrAlreadyExists = errors.New("a folder with this name already exists")

	// ErrServerNotSupported means the server disallows the operation class.
	ErrServerNotSupported = errors.New("operation not supported by the server")

	// ErrEngineFailure wraps synchronous engine-call failures.
	ErrEngineFailure = errors.New("mail engine request failed")

	// ErrFolderNotFound means the target folder is not in the current tree.
	ErrFolderNotFound = errors.New("folder not found")
)

// AsyncFailureError carries the engine's raw error code for failures
// delivered via the notification bus, so the presentation layer can map
// codes it knows about to specific messages.
type AsyncFailureError struct {
	Code engine.Code
}

func (e *AsyncFailureError) Error() string {
	return fmt.Sprintf("folder operation failed: %s", e.Code)
}

// asyncError maps an engine failure code onto the error taxonomy. Locally
// detected and server-reported name collisions must surface identically, so
// CodeAlreadyExists maps to the same sentinel the local guard returns.
func asyncError(code engine.Code) error {
	switch code {
	case engine.CodeAlreadyExists:
		return ErrAlreadyExists
	case engine.CodeNotSupported:
		return ErrServerNotSupported
	default:
		return &AsyncFailureError{Code: code}
	}
}
