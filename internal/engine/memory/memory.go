// Package memory provides an in-memory mail engine used for local (POP)
// accounts, offline runs and tests. It honors the production contract:
// mutation calls return a correlation handle immediately and the outcome is
// published later as a bus event from a separate goroutine.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/events"
)

type Engine struct {
	mu          sync.Mutex
	bus         *events.Bus
	nextHandle  engine.Handle
	nextMailbox int64
	records     map[int64]engine.MailboxRecord
	cancelled   map[engine.Handle]struct{}

	// owners remembers which account each issued mailbox id belonged to,
	// surviving deletion. Failure events for vanished mailboxes still need
	// an account id or scope-filtering consumers would drop them.
	owners map[int64]int64

	priorityUnread, priorityTotal int
	starredUnread, starredTotal   int

	jobs sync.WaitGroup
}

func New(bus *events.Bus) *Engine {
	return &Engine{
		bus:       bus,
		records:   make(map[int64]engine.MailboxRecord),
		cancelled: make(map[engine.Handle]struct{}),
		owners:    make(map[int64]int64),
	}
}

// Seed inserts a mailbox record directly, assigning its id. No event is
// published; use it to set up initial state.
func (e *Engine) Seed(rec engine.MailboxRecord) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextMailbox++
	rec.ID = e.nextMailbox
	e.records[rec.ID] = rec
	e.owners[rec.ID] = rec.AccountID
	return rec.ID
}

// SetPriorityCounts sets the aggregate priority-sender counts.
func (e *Engine) SetPriorityCounts(unread, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.priorityUnread, e.priorityTotal = unread, total
}

// SetFavouriteCounts sets the aggregate starred counts.
func (e *Engine) SetFavouriteCounts(unread, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starredUnread, e.starredTotal = unread, total
}

// Wait blocks until all scheduled jobs have published their outcome.
func (e *Engine) Wait() {
	e.jobs.Wait()
}

func (e *Engine) newHandle() engine.Handle {
	e.nextHandle++
	return e.nextHandle
}

// schedule runs fn on its own goroutine and publishes the event it returns,
// unless the job was cancelled in the meantime.
func (e *Engine) schedule(handle engine.Handle, fn func() events.Event) {
	e.jobs.Add(1)

	go func() {
		defer e.jobs.Done()

		evt := fn()

		e.mu.Lock()
		_, cancelled := e.cancelled[handle]
		delete(e.cancelled, handle)
		e.mu.Unlock()

		if cancelled || evt == nil {
			return
		}
		e.bus.Publish(evt)
	}()
}

func (e *Engine) AddMailbox(ctx context.Context, accountID int64, name, alias string, onServer bool) (engine.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	handle := e.newHandle()

	e.schedule(handle, func() events.Event {
		e.mu.Lock()
		defer e.mu.Unlock()

		for _, rec := range e.records {
			if rec.AccountID == accountID && rec.Type == engine.MailboxUser && strings.EqualFold(rec.Name, name) {
				return events.AddMailboxFailed{AccountID: accountID, Handle: handle, Code: engine.CodeAlreadyExists}
			}
		}

		e.nextMailbox++
		rec := engine.MailboxRecord{
			ID:         e.nextMailbox,
			AccountID:  accountID,
			Name:       name,
			Alias:      alias,
			Type:       engine.MailboxUser,
			Selectable: true,
		}
		e.records[rec.ID] = rec
		e.owners[rec.ID] = accountID

		return events.MailboxAdded{AccountID: accountID, MailboxID: rec.ID, Name: name, Alias: alias}
	})

	return handle, nil
}

func (e *Engine) DeleteMailbox(ctx context.Context, mailboxID int64, onServer bool) (engine.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	handle := e.newHandle()

	e.schedule(handle, func() events.Event {
		e.mu.Lock()
		defer e.mu.Unlock()

		rec, ok := e.records[mailboxID]
		if !ok {
			return events.DeleteMailboxFailed{AccountID: e.owners[mailboxID], MailboxID: mailboxID, Handle: handle, Code: engine.CodeUnknown}
		}

		delete(e.records, mailboxID)
		return events.MailboxDeleted{AccountID: rec.AccountID, MailboxID: mailboxID}
	})

	return handle, nil
}

func (e *Engine) RenameMailbox(ctx context.Context, mailboxID int64, name, alias string, onServer bool) (engine.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	handle := e.newHandle()

	e.schedule(handle, func() events.Event {
		e.mu.Lock()
		defer e.mu.Unlock()

		rec, ok := e.records[mailboxID]
		if !ok {
			return events.RenameMailboxFailed{AccountID: e.owners[mailboxID], MailboxID: mailboxID, Handle: handle, Code: engine.CodeUnknown}
		}

		for _, other := range e.records {
			if other.ID != mailboxID && other.AccountID == rec.AccountID && other.Type == engine.MailboxUser && strings.EqualFold(other.Name, name) {
				return events.RenameMailboxFailed{AccountID: rec.AccountID, MailboxID: mailboxID, Handle: handle, Code: engine.CodeAlreadyExists}
			}
		}

		rec.Name = name
		rec.Alias = alias
		e.records[mailboxID] = rec

		return events.MailboxRenamed{AccountID: rec.AccountID, MailboxID: mailboxID, Name: name, Alias: alias}
	})

	return handle, nil
}

func (e *Engine) CancelJob(ctx context.Context, accountID int64, handle engine.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelled[handle] = struct{}{}
	return nil
}

func (e *Engine) GetMailboxSnapshot(ctx context.Context, accountID int64) ([]engine.MailboxRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []engine.MailboxRecord
	for _, rec := range e.records {
		if rec.AccountID == accountID {
			out = append(out, rec)
		}
	}

	// System mailboxes first in type order, then user folders by name.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out, nil
}

func (e *Engine) GetCombinedCountByType(ctx context.Context, mailboxType engine.MailboxType) (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var unread, total int
	for _, rec := range e.records {
		if rec.Type == mailboxType {
			unread += rec.UnreadCount
			total += rec.TotalCount
		}
	}
	return unread, total, nil
}

func (e *Engine) GetPrioritySenderCount(ctx context.Context) (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.priorityUnread, e.priorityTotal, nil
}

func (e *Engine) GetFavouriteCount(ctx context.Context) (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starredUnread, e.starredTotal, nil
}

// UpdateCounts changes a mailbox's counts and publishes the matching
// storage event.
func (e *Engine) UpdateCounts(mailboxID int64, unread, total int) {
	e.mu.Lock()
	rec, ok := e.records[mailboxID]
	if ok {
		rec.UnreadCount = unread
		rec.TotalCount = total
		e.records[mailboxID] = rec
	}
	e.mu.Unlock()

	if ok {
		e.bus.Publish(events.MailboxUpdated{AccountID: rec.AccountID, MailboxID: mailboxID, UnreadCount: unread, TotalCount: total})
	}
}

var _ engine.Engine = (*Engine)(nil)
