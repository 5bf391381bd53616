package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/events"
	"github.com/mailfold/mailfold/internal/folders"
)

// opState is the controller's position in the mutation lifecycle.
type opState int

const (
	stateIdle opState = iota
	stateAwaitingCreate
	stateAwaitingDelete
	stateAwaitingRename
)

func (s opState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingCreate:
		return "awaiting-create"
	case stateAwaitingDelete:
		return "awaiting-delete"
	case stateAwaitingRename:
		return "awaiting-rename"
	default:
		return "unknown"
	}
}

// pendingMutation is the single live mutation. For deletes and renames the
// target mailbox id is fixed before the engine call; for creates it stays
// zero until the resolving storage event carries it.
type pendingMutation struct {
	kind      MutationKind
	accountID int64
	targetID  int64
	name      string
	alias     string
	handle    engine.Handle
}

// FolderServiceImpl implements FolderService. All methods must be called
// from the screen's event loop; interleaving is serialized one level up, so
// the state machine itself holds no locks.
type FolderServiceImpl struct {
	engine   engine.Engine
	tree     *folders.Tree
	accounts map[int64]engine.Account
	logger   *log.Logger

	state   opState
	pending *pendingMutation
}

// NewFolderService creates the folder-mutation controller bound to the
// screen's tree (used for the duplicate-name guard and folder lookups).
func NewFolderService(eng engine.Engine, tree *folders.Tree) *FolderServiceImpl {
	return &FolderServiceImpl{
		engine:   eng,
		tree:     tree,
		accounts: make(map[int64]engine.Account),
	}
}

// SetLogger sets an optional debug logger.
func (s *FolderServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetAccounts replaces the account table used for protocol classification.
func (s *FolderServiceImpl) SetAccounts(accounts []engine.Account) {
	s.accounts = make(map[int64]engine.Account, len(accounts))
	for _, acct := range accounts {
		s.accounts[acct.ID] = acct
	}
}

func (s *FolderServiceImpl) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// InFlight reports the pending mutation kind, if any.
func (s *FolderServiceImpl) InFlight() (MutationKind, bool) {
	if s.state == stateIdle || s.pending == nil {
		return 0, false
	}
	return s.pending.kind, true
}

// PendingAccount returns the account scope of the pending mutation.
func (s *FolderServiceImpl) PendingAccount() (int64, bool) {
	if s.state == stateIdle || s.pending == nil {
		return 0, false
	}
	return s.pending.accountID, true
}

func (s *FolderServiceImpl) onServer(accountID int64) bool {
	if acct, ok := s.accounts[accountID]; ok {
		return acct.OnServer()
	}
	// Unknown accounts default to server-side; the engine rejects what it
	// cannot do.
	return true
}

// RequestCreate validates and schedules a folder create. The busy guard runs
// before the name guards: a second request during a pending mutation is
// always ErrBusy, never ErrAlreadyExists.
func (s *FolderServiceImpl) RequestCreate(ctx context.Context, req CreateFolderRequest) (engine.Handle, error) {
	if s.state != stateIdle {
		return 0, ErrBusy
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return 0, ErrEmptyName
	}
	alias := strings.TrimSpace(req.Alias)
	if alias == "" {
		alias = name
	}

	if s.tree.HasUserFolder(req.AccountID, name, 0) {
		return 0, ErrAlreadyExists
	}

	handle, err := s.engine.AddMailbox(ctx, req.AccountID, name, alias, s.onServer(req.AccountID))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	s.pending = &pendingMutation{
		kind:      MutationCreate,
		accountID: req.AccountID,
		name:      name,
		alias:     alias,
		handle:    handle,
	}
	s.state = stateAwaitingCreate
	s.logf("create %q scheduled on account %d (handle %d)", name, req.AccountID, handle)

	return handle, nil
}

// RequestDelete schedules removal of the folder. No name validation; the
// caller only offers deletable folders.
func (s *FolderServiceImpl) RequestDelete(ctx context.Context, req DeleteFolderRequest) (engine.Handle, error) {
	if s.state != stateIdle {
		return 0, ErrBusy
	}

	node := s.tree.Node(s.tree.FindMailbox(0, req.FolderID))
	if node == nil {
		return 0, ErrFolderNotFound
	}

	handle, err := s.engine.DeleteMailbox(ctx, req.FolderID, s.onServer(node.AccountID))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	s.pending = &pendingMutation{
		kind:      MutationDelete,
		accountID: node.AccountID,
		targetID:  req.FolderID,
		name:      node.Name,
		handle:    handle,
	}
	s.state = stateAwaitingDelete
	s.logf("delete of mailbox %d scheduled (handle %d)", req.FolderID, handle)

	return handle, nil
}

// RequestRename validates and schedules a rename. The collision guard
// excludes the folder being renamed so a case-only change is allowed.
func (s *FolderServiceImpl) RequestRename(ctx context.Context, req RenameFolderRequest) (engine.Handle, error) {
	if s.state != stateIdle {
		return 0, ErrBusy
	}

	name := strings.TrimSpace(req.NewName)
	if name == "" {
		return 0, ErrEmptyName
	}
	alias := strings.TrimSpace(req.NewAlias)
	if alias == "" {
		alias = name
	}

	node := s.tree.Node(s.tree.FindMailbox(0, req.FolderID))
	if node == nil {
		return 0, ErrFolderNotFound
	}

	if s.tree.HasUserFolder(node.AccountID, name, req.FolderID) {
		return 0, ErrAlreadyExists
	}

	handle, err := s.engine.RenameMailbox(ctx, req.FolderID, name, alias, s.onServer(node.AccountID))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	s.pending = &pendingMutation{
		kind:      MutationRename,
		accountID: node.AccountID,
		targetID:  req.FolderID,
		name:      name,
		alias:     alias,
		handle:    handle,
	}
	s.state = stateAwaitingRename
	s.logf("rename of mailbox %d to %q scheduled (handle %d)", req.FolderID, name, handle)

	return handle, nil
}

// Cancel aborts the pending mutation. The engine-side cancellation is
// fire-and-forget; local state clears unconditionally and any late
// completion event for the old handle will no longer match.
func (s *FolderServiceImpl) Cancel(ctx context.Context) {
	if s.state == stateIdle || s.pending == nil {
		return
	}

	if err := s.engine.CancelJob(ctx, s.pending.accountID, s.pending.handle); err != nil {
		s.logf("cancel of handle %d: %v", s.pending.handle, err)
	}

	s.logf("%s of %q cancelled", s.pending.kind, s.pending.name)
	s.clear()
}

func (s *FolderServiceImpl) clear() {
	s.state = stateIdle
	s.pending = nil
}

// OnExternalEvent offers one bus event to the pending mutation and resolves
// it on a match. Matching is deliberately asymmetric: deletes and renames
// match on the target mailbox id fixed at request time, creates match on the
// account id and learn their mailbox id from the event itself.
func (s *FolderServiceImpl) OnExternalEvent(evt events.Event) Resolution {
	if s.state == stateIdle || s.pending == nil {
		return Resolution{Kind: Unmatched}
	}
	p := s.pending

	switch e := evt.(type) {
	case events.MailboxAdded:
		if s.state == stateAwaitingCreate && e.AccountID == p.accountID {
			return s.resolveSuccess(e.MailboxID, displayName(e.Name, e.Alias))
		}

	case events.MailboxDeleted:
		if s.state == stateAwaitingDelete && e.MailboxID == p.targetID {
			return s.resolveSuccess(e.MailboxID, p.name)
		}

	case events.MailboxRenamed:
		if s.state == stateAwaitingRename && e.MailboxID == p.targetID {
			return s.resolveSuccess(e.MailboxID, displayName(e.Name, e.Alias))
		}

	case events.AddMailboxFailed:
		if s.state == stateAwaitingCreate && e.AccountID == p.accountID {
			return s.resolveFailure(e.Code)
		}

	case events.DeleteMailboxFailed:
		if s.state == stateAwaitingDelete && e.MailboxID == p.targetID {
			return s.resolveFailure(e.Code)
		}

	case events.RenameMailboxFailed:
		if s.state == stateAwaitingRename && e.MailboxID == p.targetID {
			return s.resolveFailure(e.Code)
		}

	case events.MailboxRenameFailed:
		if s.state == stateAwaitingRename && e.MailboxID == p.targetID {
			return s.resolveFailure(e.Code)
		}
	}

	return Resolution{Kind: Unmatched}
}

func (s *FolderServiceImpl) resolveSuccess(mailboxID int64, display string) Resolution {
	p := s.pending
	s.clear()

	if display == "" {
		display = displayName(p.name, p.alias)
	}

	s.logf("%s of %q resolved: success (mailbox %d)", p.kind, p.name, mailboxID)
	return Resolution{
		Kind: ResolvedSuccess,
		Result: MutationResult{
			Kind:                p.kind,
			TargetFolderID:      mailboxID,
			Status:              StatusSuccess,
			ResolvedDisplayName: display,
		},
	}
}

func (s *FolderServiceImpl) resolveFailure(code engine.Code) Resolution {
	p := s.pending
	// Clear before surfacing so the screen can immediately accept a new
	// request from the failure handler.
	s.clear()

	s.logf("%s of %q resolved: failure (%s)", p.kind, p.name, code)
	return Resolution{
		Kind: ResolvedFailure,
		Result: MutationResult{
			Kind:                p.kind,
			TargetFolderID:      p.targetID,
			Status:              StatusFailure,
			ResolvedDisplayName: displayName(p.name, p.alias),
			Err:                 asyncError(code),
		},
	}
}

func displayName(name, alias string) string {
	if alias != "" {
		return alias
	}
	return name
}
