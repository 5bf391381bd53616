package events

import "github.com/mailfold/mailfold/internal/engine"

// Topic is the logical channel an event belongs to on the notification bus.
type Topic string

const (
	// TopicStorageChange carries mailbox/account store mutations observed by
	// the engine (including changes made by other clients).
	TopicStorageChange Topic = "StorageChange"

	// TopicNetworkStatus carries job progress for scheduled engine work.
	TopicNetworkStatus Topic = "NetworkStatus"
)

// Event is the tagged union delivered by the notification bus. Concrete
// event types below implement it with a value receiver so they can be
// published and matched by type switch.
type Event interface {
	EventTopic() Topic
}

// StorageChange events.

// MailboxAdded signals that a mailbox now exists in the store, whether
// created by this client or by another one. Create mutations resolve against
// this event (matched by account, the mailbox id is learned from it).
type MailboxAdded struct {
	AccountID int64
	MailboxID int64
	Name      string
	Alias     string
}

// MailboxDeleted signals that a mailbox was removed from the store.
type MailboxDeleted struct {
	AccountID int64
	MailboxID int64
}

// MailboxRenamed signals a mailbox name/alias change in the store.
type MailboxRenamed struct {
	AccountID int64
	MailboxID int64
	Name      string
	Alias     string
}

// MailboxUpdated signals a count change for an existing mailbox.
type MailboxUpdated struct {
	AccountID   int64
	MailboxID   int64
	UnreadCount int
	TotalCount  int
}

// MailboxRenameFailed is the storage-side rename failure notification. Some
// engines report rename failures here rather than on the network topic; both
// are routed identically.
type MailboxRenameFailed struct {
	AccountID int64
	MailboxID int64
	Code      engine.Code
}

// AccountUpdated signals that account settings changed. A non-empty Color
// carries an account-color change.
type AccountUpdated struct {
	AccountID int64
	Color     string
}

// AccountDeleted signals that an account was removed.
type AccountDeleted struct {
	AccountID int64
}

// AccountSyncFinished signals the end of a full account sync pass.
type AccountSyncFinished struct {
	AccountID int64
}

func (MailboxAdded) EventTopic() Topic        { return TopicStorageChange }
func (MailboxDeleted) EventTopic() Topic      { return TopicStorageChange }
func (MailboxRenamed) EventTopic() Topic      { return TopicStorageChange }
func (MailboxUpdated) EventTopic() Topic      { return TopicStorageChange }
func (MailboxRenameFailed) EventTopic() Topic { return TopicStorageChange }
func (AccountUpdated) EventTopic() Topic      { return TopicStorageChange }
func (AccountDeleted) EventTopic() Topic      { return TopicStorageChange }
func (AccountSyncFinished) EventTopic() Topic { return TopicStorageChange }

// NetworkStatus events.

// AddMailboxFailed signals that a scheduled create job failed. Creates are
// matched by account because the request never learns a mailbox id.
type AddMailboxFailed struct {
	AccountID int64
	Handle    engine.Handle
	Code      engine.Code
}

// DeleteMailboxFailed signals that a scheduled delete job failed.
type DeleteMailboxFailed struct {
	AccountID int64
	MailboxID int64
	Handle    engine.Handle
	Code      engine.Code
}

// RenameMailboxFailed signals that a scheduled rename job failed.
type RenameMailboxFailed struct {
	AccountID int64
	MailboxID int64
	Handle    engine.Handle
	Code      engine.Code
}

// ImapMailboxListSynced signals that an IMAP folder-list sync completed.
// Deferred rebuilds accumulated during the sync are flushed on this event.
type ImapMailboxListSynced struct {
	AccountID int64
}

// DownloadFinished signals that a message body download completed. The
// folder screen ignores it; it is enumerated so routing stays exhaustive.
type DownloadFinished struct {
	AccountID int64
	MailboxID int64
}

func (AddMailboxFailed) EventTopic() Topic      { return TopicNetworkStatus }
func (DeleteMailboxFailed) EventTopic() Topic   { return TopicNetworkStatus }
func (RenameMailboxFailed) EventTopic() Topic   { return TopicNetworkStatus }
func (ImapMailboxListSynced) EventTopic() Topic { return TopicNetworkStatus }
func (DownloadFinished) EventTopic() Topic      { return TopicNetworkStatus }
