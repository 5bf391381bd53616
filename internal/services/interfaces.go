package services

import (
	"context"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/events"
)

// Typed mutation requests. Each screen transition that used to pass loose
// key/value bundles gets one of these instead; fields are validated when the
// request is handled, before any engine call.

// CreateFolderRequest asks for a new user folder under the account.
type CreateFolderRequest struct {
	AccountID int64
	Name      string
	Alias     string
}

// DeleteFolderRequest asks for removal of an existing user folder. Callers
// only offer deletable folders; deletability is not re-derived here.
type DeleteFolderRequest struct {
	FolderID int64
}

// RenameFolderRequest asks for a name/alias change of an existing folder.
type RenameFolderRequest struct {
	FolderID int64
	NewName  string
	NewAlias string
}

// MutationKind tags the three folder mutations.
type MutationKind int

const (
	MutationCreate MutationKind = iota
	MutationDelete
	MutationRename
)

func (k MutationKind) String() string {
	switch k {
	case MutationCreate:
		return "create"
	case MutationDelete:
		return "delete"
	case MutationRename:
		return "rename"
	default:
		return "unknown"
	}
}

// MutationStatus is the terminal outcome of a resolved mutation.
type MutationStatus int

const (
	StatusSuccess MutationStatus = iota
	StatusFailure
)

// MutationResult is handed to the presentation layer once per completed
// mutation, suitable for bundling into the screen's result-to-caller step.
type MutationResult struct {
	Kind           MutationKind
	TargetFolderID int64
	Status         MutationStatus

	// ResolvedDisplayName is the folder's display name after the mutation
	// (for deletes, the name it had).
	ResolvedDisplayName string

	// Err classifies the failure; nil on success.
	Err error
}

// ResolutionKind says what OnExternalEvent did with an event.
type ResolutionKind int

const (
	// Unmatched means the event does not belong to the pending mutation
	// (or none is pending); state is unchanged.
	Unmatched ResolutionKind = iota
	ResolvedSuccess
	ResolvedFailure
)

// Resolution is the outcome of offering one bus event to the controller.
// Result is only meaningful when Kind is not Unmatched.
type Resolution struct {
	Kind   ResolutionKind
	Result MutationResult
}

// FolderService is the folder-mutation state machine: it issues mutations to
// the engine, enforces the single-in-flight invariant and resolves pending
// mutations against bus events.
type FolderService interface {
	RequestCreate(ctx context.Context, req CreateFolderRequest) (engine.Handle, error)
	RequestDelete(ctx context.Context, req DeleteFolderRequest) (engine.Handle, error)
	RequestRename(ctx context.Context, req RenameFolderRequest) (engine.Handle, error)

	// Cancel aborts the pending mutation, if any. Fire-and-forget: the
	// engine-side job is asked to stop but the local state clears either way.
	Cancel(ctx context.Context)

	// InFlight reports the pending mutation kind, if any.
	InFlight() (MutationKind, bool)

	// OnExternalEvent offers a bus event to the pending mutation.
	OnExternalEvent(evt events.Event) Resolution
}
