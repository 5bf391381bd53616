package services

import (
	"log"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/events"
	"github.com/mailfold/mailfold/internal/folders"
)

// ViewContext is the screen's current scope, consulted by the router purely
// as a filter. The router never mutates it.
type ViewContext struct {
	Mode      folders.ViewMode
	AccountID int64 // account scope in single-account mode
}

// NotificationRouter dispatches every bus event to exactly one of: ignore
// (wrong account or view mode), the folder controller (mutation-relevant),
// or the tree (count refresh / unsolicited folder change).
type NotificationRouter struct {
	ctrl   *FolderServiceImpl
	tree   *folders.Tree
	colors *folders.ColorRegistry
	logger *log.Logger

	accounts map[int64]engine.Account

	// view yields the screen's current scope at dispatch time.
	view func() ViewContext

	// rebuild asks the screen for a full list rebuild.
	rebuild func()

	// emit delivers a resolved mutation result to the presentation layer.
	emit func(MutationResult)

	// pendingRefresh counts deferred rebuilds per IMAP account. Unsolicited
	// mailbox-list deltas bump it; the rebuild runs once on sync-finished
	// instead of once per delta.
	pendingRefresh map[int64]int
}

func NewNotificationRouter(ctrl *FolderServiceImpl, tree *folders.Tree, colors *folders.ColorRegistry, view func() ViewContext, rebuild func(), emit func(MutationResult)) *NotificationRouter {
	return &NotificationRouter{
		ctrl:           ctrl,
		tree:           tree,
		colors:         colors,
		accounts:       make(map[int64]engine.Account),
		view:           view,
		rebuild:        rebuild,
		emit:           emit,
		pendingRefresh: make(map[int64]int),
	}
}

// SetLogger sets an optional debug logger.
func (r *NotificationRouter) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// SetAccounts replaces the account table used for IMAP classification.
func (r *NotificationRouter) SetAccounts(accounts []engine.Account) {
	r.accounts = make(map[int64]engine.Account, len(accounts))
	for _, acct := range accounts {
		r.accounts[acct.ID] = acct
	}
}

func (r *NotificationRouter) logf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

func (r *NotificationRouter) isIMAP(accountID int64) bool {
	if acct, ok := r.accounts[accountID]; ok {
		return acct.Protocol == engine.ProtocolIMAP
	}
	return false
}

func inScope(view ViewContext, accountID int64) bool {
	if view.Mode == folders.ViewSingleAccount {
		return accountID == view.AccountID
	}
	return true
}

// deferOrRebuild absorbs an unsolicited folder-list change. IMAP accounts
// receive one storage event per mailbox delta during a list sync, so the
// rebuild is deferred to the sync-finished event; everything else rebuilds
// immediately.
func (r *NotificationRouter) deferOrRebuild(accountID int64) {
	if r.isIMAP(accountID) {
		r.pendingRefresh[accountID]++
		r.logf("deferring rebuild for account %d (%d pending)", accountID, r.pendingRefresh[accountID])
		return
	}
	r.rebuild()
}

// flushDeferred runs the rebuild owed to the account, if any.
func (r *NotificationRouter) flushDeferred(accountID int64) {
	if r.pendingRefresh[accountID] == 0 {
		return
	}
	delete(r.pendingRefresh, accountID)
	r.rebuild()
}

// Route handles one bus event. Must be called from the screen's event loop.
func (r *NotificationRouter) Route(evt events.Event) {
	view := r.view()

	// Flat account-list and move-target views intentionally do not track a
	// single account's live folder tree.
	if view.Mode == folders.ViewMoveTarget || view.Mode == folders.ViewAccountList {
		return
	}

	switch e := evt.(type) {
	case events.MailboxAdded:
		if !inScope(view, e.AccountID) {
			return
		}
		res := r.ctrl.OnExternalEvent(e)
		if res.Kind == ResolvedSuccess {
			node := folders.FolderNode{
				MailboxID:    e.MailboxID,
				Name:         e.Name,
				DisplayAlias: displayName(e.Name, e.Alias),
				AccountID:    e.AccountID,
			}
			if _, ok := r.tree.InsertUserFolder(node); !ok {
				r.rebuild()
			}
			r.emit(res.Result)
			return
		}
		// Another client created a folder.
		r.deferOrRebuild(e.AccountID)

	case events.MailboxDeleted:
		if !inScope(view, e.AccountID) {
			return
		}
		res := r.ctrl.OnExternalEvent(e)
		if res.Kind == ResolvedSuccess {
			if !r.tree.RemoveMailbox(e.AccountID, e.MailboxID) {
				r.rebuild()
			}
			r.emit(res.Result)
			return
		}
		r.deferOrRebuild(e.AccountID)

	case events.MailboxRenamed:
		if !inScope(view, e.AccountID) {
			return
		}
		res := r.ctrl.OnExternalEvent(e)
		if res.Kind == ResolvedSuccess {
			if !r.tree.RenameMailbox(e.AccountID, e.MailboxID, e.Name, displayName(e.Name, e.Alias)) {
				r.rebuild()
			}
			r.emit(res.Result)
			return
		}
		// External renames patch the node in place; sibling order is left
		// as-is until the next rebuild.
		if !r.tree.RenameMailbox(e.AccountID, e.MailboxID, e.Name, displayName(e.Name, e.Alias)) {
			r.deferOrRebuild(e.AccountID)
		}

	case events.MailboxUpdated:
		if !inScope(view, e.AccountID) {
			return
		}
		// Count-only refresh; unknown mailboxes are ignored.
		r.tree.UpdateCounts(e.AccountID, e.MailboxID, e.UnreadCount, e.TotalCount)

	case events.AddMailboxFailed:
		r.resolveFailure(view, e.AccountID, e)

	case events.DeleteMailboxFailed:
		r.resolveFailure(view, e.AccountID, e)

	case events.RenameMailboxFailed:
		r.resolveFailure(view, e.AccountID, e)

	case events.MailboxRenameFailed:
		r.resolveFailure(view, e.AccountID, e)

	case events.AccountSyncFinished:
		if !inScope(view, e.AccountID) {
			return
		}
		r.flushDeferred(e.AccountID)

	case events.ImapMailboxListSynced:
		if !inScope(view, e.AccountID) {
			return
		}
		r.flushDeferred(e.AccountID)

	case events.AccountUpdated:
		if e.Color != "" {
			r.colors.Update(e.AccountID, e.Color)
		}

	case events.AccountDeleted:
		r.colors.Remove(e.AccountID)
		r.rebuild()

	case events.DownloadFinished:
		// Body downloads do not affect the folder list.

	default:
		r.logf("unhandled event %T", evt)
	}
}

// resolveFailure offers a job-failure event to the controller. Failures for
// a different target (or with nothing pending) are dropped silently.
func (r *NotificationRouter) resolveFailure(view ViewContext, accountID int64, evt events.Event) {
	if !inScope(view, accountID) {
		return
	}
	res := r.ctrl.OnExternalEvent(evt)
	if res.Kind == ResolvedFailure {
		r.emit(res.Result)
	}
}
