package engine

import "context"

// Handle is the opaque correlation token returned when the engine schedules
// an asynchronous mailbox job. A zero handle is never issued.
type Handle int64

// Protocol classifies how an account talks to its server. POP accounts keep
// folder mutations local-only (onServer=false on every engine call).
type Protocol string

const (
	ProtocolIMAP Protocol = "imap"
	ProtocolPOP  Protocol = "pop"
)

// Account describes one configured mail account as the engine sees it.
type Account struct {
	ID          int64
	DisplayName string
	Protocol    Protocol
}

// OnServer reports whether folder mutations for this account should be
// propagated to the server.
func (a Account) OnServer() bool {
	return a.Protocol != ProtocolPOP
}

// MailboxType is the server-side classification of a mailbox.
type MailboxType int

const (
	MailboxInbox MailboxType = iota
	MailboxDrafts
	MailboxOutbox
	MailboxSent
	MailboxSpam
	MailboxTrash
	MailboxUser
)

// MailboxRecord is one row of a mailbox snapshot.
type MailboxRecord struct {
	ID          int64
	AccountID   int64
	Name        string
	Alias       string
	Type        MailboxType
	UnreadCount int
	TotalCount  int
	// Selectable is false for provider-internal or \Noselect entries
	// (e.g. the "[Gmail]" container); those never appear in folder lists.
	Selectable bool
}

// Code is the raw engine error code carried by asynchronous failure events.
type Code int

const (
	CodeUnknown Code = iota
	CodeAlreadyExists
	CodeNotSupported
	CodeConnectionFailed
	CodeAuthFailed
	CodeCancelled
)

func (c Code) String() string {
	switch c {
	case CodeAlreadyExists:
		return "already-exists"
	case CodeNotSupported:
		return "not-supported"
	case CodeConnectionFailed:
		return "connection-failed"
	case CodeAuthFailed:
		return "auth-failed"
	case CodeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Engine is the mail-engine contract consumed by the folder screen. Mutation
// calls are synchronous at the call boundary but only schedule asynchronous
// work: they return a correlation handle immediately and the outcome arrives
// later as an event on the notification bus.
type Engine interface {
	AddMailbox(ctx context.Context, accountID int64, name, alias string, onServer bool) (Handle, error)
	DeleteMailbox(ctx context.Context, mailboxID int64, onServer bool) (Handle, error)
	RenameMailbox(ctx context.Context, mailboxID int64, name, alias string, onServer bool) (Handle, error)

	// CancelJob aborts an outstanding mutation job. Best-effort: the job may
	// already have completed, in which case its completion event is still
	// published and the caller is expected to discard it.
	CancelJob(ctx context.Context, accountID int64, handle Handle) error

	GetMailboxSnapshot(ctx context.Context, accountID int64) ([]MailboxRecord, error)

	// Aggregate count queries across all accounts, used by the combined and
	// flat account-list views instead of scanning per-account snapshots.
	GetCombinedCountByType(ctx context.Context, mailboxType MailboxType) (unread, total int, err error)
	GetPrioritySenderCount(ctx context.Context) (unread, total int, err error)
	GetFavouriteCount(ctx context.Context) (unread, total int, err error)
}
