// Package gmail adapts the Gmail Labels API to the mail-engine contract.
// Folder mutations are scheduled on background goroutines so the engine
// calls return a correlation handle immediately; outcomes are published on
// the notification bus like any other engine's.
package gmail

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/events"
)

const gmailUser = "me"

// Client implements engine.Engine for a single Gmail account. Gmail labels
// are string-keyed; the engine contract uses numeric mailbox ids, so the
// client interns label ids into stable numeric ids for the screen's
// lifetime. Accounts classified as local (onServer=false) never reach the
// API: their folders live in an in-client table.
type Client struct {
	service   *gmail.Service
	bus       *events.Bus
	accountID int64

	mu          sync.Mutex
	nextHandle  engine.Handle
	nextID      int64
	idForLabel  map[string]int64
	labelForID  map[int64]string
	local       map[int64]engine.MailboxRecord
	cancelled   map[engine.Handle]struct{}

	jobs sync.WaitGroup
}

func NewClient(service *gmail.Service, bus *events.Bus, accountID int64) *Client {
	return &Client{
		service:    service,
		bus:        bus,
		accountID:  accountID,
		idForLabel: make(map[string]int64),
		labelForID: make(map[int64]string),
		local:      make(map[int64]engine.MailboxRecord),
		cancelled:  make(map[engine.Handle]struct{}),
	}
}

// Wait blocks until all scheduled jobs have finished. Used in teardown.
func (c *Client) Wait() {
	c.jobs.Wait()
}

func (c *Client) internID(labelID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internIDLocked(labelID)
}

func (c *Client) internIDLocked(labelID string) int64 {
	if id, ok := c.idForLabel[labelID]; ok {
		return id
	}
	c.nextID++
	c.idForLabel[labelID] = c.nextID
	c.labelForID[c.nextID] = labelID
	return c.nextID
}

func (c *Client) labelID(mailboxID int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	labelID, ok := c.labelForID[mailboxID]
	return labelID, ok
}

func (c *Client) newHandle() engine.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	return c.nextHandle
}

// schedule runs the job asynchronously and publishes its event unless the
// handle was cancelled while the job ran.
func (c *Client) schedule(handle engine.Handle, fn func() events.Event) {
	c.jobs.Add(1)

	go func() {
		defer c.jobs.Done()

		evt := fn()

		c.mu.Lock()
		_, cancelled := c.cancelled[handle]
		delete(c.cancelled, handle)
		c.mu.Unlock()

		if cancelled || evt == nil {
			return
		}
		c.bus.Publish(evt)
	}()
}

// mapError classifies a Gmail API failure into an engine code.
func mapError(err error) engine.Code {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 409:
			return engine.CodeAlreadyExists
		case 400, 403:
			return engine.CodeNotSupported
		case 401:
			return engine.CodeAuthFailed
		}
	}
	return engine.CodeConnectionFailed
}

func (c *Client) AddMailbox(ctx context.Context, accountID int64, name, alias string, onServer bool) (engine.Handle, error) {
	handle := c.newHandle()

	if !onServer {
		c.schedule(handle, func() events.Event {
			c.mu.Lock()
			defer c.mu.Unlock()

			for _, rec := range c.local {
				if strings.EqualFold(rec.Name, name) {
					return events.AddMailboxFailed{AccountID: accountID, Handle: handle, Code: engine.CodeAlreadyExists}
				}
			}

			c.nextID++
			rec := engine.MailboxRecord{
				ID:         c.nextID,
				AccountID:  accountID,
				Name:       name,
				Alias:      alias,
				Type:       engine.MailboxUser,
				Selectable: true,
			}
			c.local[rec.ID] = rec

			return events.MailboxAdded{AccountID: accountID, MailboxID: rec.ID, Name: name, Alias: alias}
		})
		return handle, nil
	}

	c.schedule(handle, func() events.Event {
		// The job outlives the request's context on purpose: once scheduled
		// it only stops through CancelJob.
		created, err := c.service.Users.Labels.Create(gmailUser, &gmail.Label{Name: name}).Context(context.Background()).Do()
		if err != nil {
			return events.AddMailboxFailed{AccountID: accountID, Handle: handle, Code: mapError(err)}
		}
		return events.MailboxAdded{AccountID: accountID, MailboxID: c.internID(created.Id), Name: created.Name, Alias: alias}
	})

	return handle, nil
}

func (c *Client) DeleteMailbox(ctx context.Context, mailboxID int64, onServer bool) (engine.Handle, error) {
	handle := c.newHandle()

	if !onServer {
		c.schedule(handle, func() events.Event {
			c.mu.Lock()
			defer c.mu.Unlock()

			rec, ok := c.local[mailboxID]
			if !ok {
				return events.DeleteMailboxFailed{AccountID: c.accountID, MailboxID: mailboxID, Handle: handle, Code: engine.CodeUnknown}
			}
			delete(c.local, mailboxID)
			return events.MailboxDeleted{AccountID: rec.AccountID, MailboxID: mailboxID}
		})
		return handle, nil
	}

	labelID, ok := c.labelID(mailboxID)
	if !ok {
		c.schedule(handle, func() events.Event {
			return events.DeleteMailboxFailed{AccountID: c.accountID, MailboxID: mailboxID, Handle: handle, Code: engine.CodeUnknown}
		})
		return handle, nil
	}

	c.schedule(handle, func() events.Event {
		if err := c.service.Users.Labels.Delete(gmailUser, labelID).Context(context.Background()).Do(); err != nil {
			return events.DeleteMailboxFailed{AccountID: c.accountID, MailboxID: mailboxID, Handle: handle, Code: mapError(err)}
		}
		return events.MailboxDeleted{AccountID: c.accountID, MailboxID: mailboxID}
	})

	return handle, nil
}

func (c *Client) RenameMailbox(ctx context.Context, mailboxID int64, name, alias string, onServer bool) (engine.Handle, error) {
	handle := c.newHandle()

	if !onServer {
		c.schedule(handle, func() events.Event {
			c.mu.Lock()
			defer c.mu.Unlock()

			rec, ok := c.local[mailboxID]
			if !ok {
				return events.RenameMailboxFailed{AccountID: c.accountID, MailboxID: mailboxID, Handle: handle, Code: engine.CodeUnknown}
			}
			rec.Name = name
			rec.Alias = alias
			c.local[mailboxID] = rec
			return events.MailboxRenamed{AccountID: rec.AccountID, MailboxID: mailboxID, Name: name, Alias: alias}
		})
		return handle, nil
	}

	labelID, ok := c.labelID(mailboxID)
	if !ok {
		c.schedule(handle, func() events.Event {
			return events.RenameMailboxFailed{AccountID: c.accountID, MailboxID: mailboxID, Handle: handle, Code: engine.CodeUnknown}
		})
		return handle, nil
	}

	c.schedule(handle, func() events.Event {
		_, err := c.service.Users.Labels.Patch(gmailUser, labelID, &gmail.Label{Name: name}).Context(context.Background()).Do()
		if err != nil {
			return events.RenameMailboxFailed{AccountID: c.accountID, MailboxID: mailboxID, Handle: handle, Code: mapError(err)}
		}
		return events.MailboxRenamed{AccountID: c.accountID, MailboxID: mailboxID, Name: name, Alias: alias}
	})

	return handle, nil
}

// CancelJob suppresses the outcome event of an outstanding job. The API
// call itself cannot be aborted; a job that already published is unaffected.
func (c *Client) CancelJob(ctx context.Context, accountID int64, handle engine.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelled[handle] = struct{}{}
	return nil
}

// typeForLabel maps a Gmail label onto the engine's mailbox classification.
// The second result is false for labels that never appear in folder lists.
func typeForLabel(label *gmail.Label) (engine.MailboxType, bool) {
	switch label.Id {
	case "INBOX":
		return engine.MailboxInbox, true
	case "DRAFT":
		return engine.MailboxDrafts, true
	case "SENT":
		return engine.MailboxSent, true
	case "SPAM":
		return engine.MailboxSpam, true
	case "TRASH":
		return engine.MailboxTrash, true
	}

	if label.Type == "user" {
		return engine.MailboxUser, true
	}

	// Remaining system labels (CATEGORY_*, UNREAD, IMPORTANT, STARRED,
	// CHAT) are not folders.
	return 0, false
}

func (c *Client) GetMailboxSnapshot(ctx context.Context, accountID int64) ([]engine.MailboxRecord, error) {
	res, err := c.service.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	var out []engine.MailboxRecord
	for _, label := range res.Labels {
		mailboxType, ok := typeForLabel(label)
		if !ok {
			continue
		}

		out = append(out, engine.MailboxRecord{
			ID:          c.internID(label.Id),
			AccountID:   c.accountID,
			Name:        label.Name,
			Alias:       label.Name,
			Type:        mailboxType,
			UnreadCount: int(label.MessagesUnread),
			TotalCount:  int(label.MessagesTotal),
			Selectable:  label.LabelListVisibility != "labelHide",
		})
	}

	c.mu.Lock()
	for _, rec := range c.local {
		out = append(out, rec)
	}
	c.mu.Unlock()

	return out, nil
}

// labelCounts fetches one label's counts. List results do not carry counts,
// so aggregates go through Labels.Get.
func (c *Client) labelCounts(ctx context.Context, labelID string) (int, int, error) {
	label, err := c.service.Users.Labels.Get(gmailUser, labelID).Context(ctx).Do()
	if err != nil {
		return 0, 0, err
	}
	return int(label.MessagesUnread), int(label.MessagesTotal), nil
}

func (c *Client) GetCombinedCountByType(ctx context.Context, mailboxType engine.MailboxType) (int, int, error) {
	var labelID string
	switch mailboxType {
	case engine.MailboxInbox:
		labelID = "INBOX"
	case engine.MailboxDrafts:
		labelID = "DRAFT"
	case engine.MailboxSent:
		labelID = "SENT"
	case engine.MailboxSpam:
		labelID = "SPAM"
	case engine.MailboxTrash:
		labelID = "TRASH"
	default:
		// Outbox has no Gmail counterpart: mail is sent immediately.
		return 0, 0, nil
	}
	return c.labelCounts(ctx, labelID)
}

func (c *Client) GetPrioritySenderCount(ctx context.Context) (int, int, error) {
	return c.labelCounts(ctx, "IMPORTANT")
}

func (c *Client) GetFavouriteCount(ctx context.Context) (int, int, error) {
	return c.labelCounts(ctx, "STARRED")
}

var _ engine.Engine = (*Client)(nil)
