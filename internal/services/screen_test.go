package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/engine/memory"
	"github.com/mailfold/mailfold/internal/events"
	"github.com/mailfold/mailfold/internal/folders"
)

// screenHarness runs a screen against the in-memory engine end to end:
// real bus, real event loop, real asynchronous job completion.
type screenHarness struct {
	bus     *events.Bus
	eng     *memory.Engine
	screen  *Screen
	results chan MutationResult
}

func newScreenHarness(t *testing.T) *screenHarness {
	t.Helper()

	bus := events.NewBus()
	eng := memory.New(bus)

	for _, rec := range []engine.MailboxRecord{
		{AccountID: 1, Name: "Inbox", Type: engine.MailboxInbox, UnreadCount: 2, TotalCount: 9, Selectable: true},
		{AccountID: 1, Name: "Sent", Type: engine.MailboxSent, TotalCount: 30, Selectable: true},
		{AccountID: 1, Name: "Archive", Type: engine.MailboxUser, TotalCount: 50, Selectable: true},
		{AccountID: 1, Name: "Projects", Type: engine.MailboxUser, UnreadCount: 1, TotalCount: 8, Selectable: true},
	} {
		eng.Seed(rec)
	}

	h := &screenHarness{
		bus:     bus,
		eng:     eng,
		results: make(chan MutationResult, 8),
	}

	screen, err := NewScreen(ScreenConfig{
		Engine:    eng,
		Bus:       bus,
		Accounts:  []engine.Account{{ID: 1, DisplayName: "Work", Protocol: engine.ProtocolIMAP}},
		Mode:      folders.ViewSingleAccount,
		AccountID: 1,
		OnResult:  func(res MutationResult) { h.results <- res },
	})
	require.NoError(t, err)
	require.NoError(t, screen.Start(context.Background()))

	h.screen = screen

	t.Cleanup(func() {
		h.eng.Wait()
		h.screen.Close(context.Background())
		h.bus.Close()
	})

	return h
}

func (h *screenHarness) waitResult(t *testing.T) MutationResult {
	t.Helper()
	select {
	case res := <-h.results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a mutation result")
		return MutationResult{}
	}
}

func (h *screenHarness) userFolderNames() []string {
	var names []string
	for _, row := range h.screen.Rows() {
		if row.Node.Kind == folders.KindUserDefined {
			names = append(names, row.Node.Name)
		}
	}
	return names
}

func TestScreenCreateEndToEnd(t *testing.T) {
	h := newScreenHarness(t)
	ctx := context.Background()

	assert.Equal(t, []string{"Archive", "Projects"}, h.userFolderNames())

	_, err := h.screen.RequestCreate(ctx, CreateFolderRequest{AccountID: 1, Name: "Invoices"})
	require.NoError(t, err)

	res := h.waitResult(t)
	assert.Equal(t, MutationCreate, res.Kind)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Invoices", res.ResolvedDisplayName)

	assert.Equal(t, []string{"Archive", "Invoices", "Projects"}, h.userFolderNames())

	_, busy := h.screen.InFlight()
	assert.False(t, busy)
}

func TestScreenCreateCollisionOnEngineSide(t *testing.T) {
	h := newScreenHarness(t)
	ctx := context.Background()

	// Bypass the screen so its tree does not know about the folder yet,
	// simulating another client winning the race.
	h.eng.Seed(engine.MailboxRecord{AccountID: 1, Name: "Invoices", Type: engine.MailboxUser, Selectable: true})

	_, err := h.screen.RequestCreate(ctx, CreateFolderRequest{AccountID: 1, Name: "Invoices"})
	require.NoError(t, err, "the local guard cannot see the foreign folder")

	res := h.waitResult(t)
	assert.Equal(t, StatusFailure, res.Status)
	assert.ErrorIs(t, res.Err, ErrAlreadyExists)

	_, busy := h.screen.InFlight()
	assert.False(t, busy)
}

func TestScreenDeleteAndRenameEndToEnd(t *testing.T) {
	h := newScreenHarness(t)
	ctx := context.Background()

	var archiveID int64
	for _, row := range h.screen.Rows() {
		if row.Node.Name == "Archive" {
			archiveID = row.Node.MailboxID
		}
	}
	require.NotZero(t, archiveID)

	_, err := h.screen.RequestDelete(ctx, DeleteFolderRequest{FolderID: archiveID})
	require.NoError(t, err)

	res := h.waitResult(t)
	assert.Equal(t, MutationDelete, res.Kind)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"Projects"}, h.userFolderNames())

	var projectsID int64
	for _, row := range h.screen.Rows() {
		if row.Node.Name == "Projects" {
			projectsID = row.Node.MailboxID
		}
	}
	require.NotZero(t, projectsID)

	_, err = h.screen.RequestRename(ctx, RenameFolderRequest{FolderID: projectsID, NewName: "Clients"})
	require.NoError(t, err)

	res = h.waitResult(t)
	assert.Equal(t, MutationRename, res.Kind)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, []string{"Clients"}, h.userFolderNames())
}

// Another client deletes a folder this screen still lists (IMAP defers the
// rebuild, so the stale row survives); deleting it here must end in a failure
// result, never a stuck pending mutation.
func TestScreenDeleteOfVanishedFolder(t *testing.T) {
	h := newScreenHarness(t)
	ctx := context.Background()

	var archiveID, projectsID int64
	for _, row := range h.screen.Rows() {
		switch row.Node.Name {
		case "Archive":
			archiveID = row.Node.MailboxID
		case "Projects":
			projectsID = row.Node.MailboxID
		}
	}
	require.NotZero(t, archiveID)
	require.NotZero(t, projectsID)

	_, err := h.eng.DeleteMailbox(ctx, archiveID, true)
	require.NoError(t, err)
	h.eng.Wait()

	// Wait until the deletion event has been routed: a count update published
	// after it becomes visible only once the loop is past both.
	h.eng.UpdateCounts(projectsID, 6, 17)
	require.Eventually(t, func() bool {
		for _, row := range h.screen.Rows() {
			if row.Node.MailboxID == projectsID {
				return row.Node.UnreadCount == 6
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	assert.Contains(t, h.userFolderNames(), "Archive", "the stale row is still listed")

	_, err = h.screen.RequestDelete(ctx, DeleteFolderRequest{FolderID: archiveID})
	require.NoError(t, err)

	res := h.waitResult(t)
	assert.Equal(t, MutationDelete, res.Kind)
	assert.Equal(t, StatusFailure, res.Status)
	var async *AsyncFailureError
	require.ErrorAs(t, res.Err, &async)
	assert.Equal(t, engine.CodeUnknown, async.Code)

	_, busy := h.screen.InFlight()
	assert.False(t, busy)
}

func TestScreenBusySecondRequest(t *testing.T) {
	h := newScreenHarness(t)
	ctx := context.Background()

	_, err := h.screen.RequestCreate(ctx, CreateFolderRequest{AccountID: 1, Name: "Invoices"})
	require.NoError(t, err)

	// The outcome event may not have been routed yet; until it is, every
	// further request is rejected.
	if _, err := h.screen.RequestCreate(ctx, CreateFolderRequest{AccountID: 1, Name: "Receipts"}); err != nil {
		assert.ErrorIs(t, err, ErrBusy)
	}

	h.waitResult(t)
}

func TestScreenExternalCountUpdate(t *testing.T) {
	h := newScreenHarness(t)

	var projectsID int64
	for _, row := range h.screen.Rows() {
		if row.Node.Name == "Projects" {
			projectsID = row.Node.MailboxID
		}
	}
	require.NotZero(t, projectsID)

	h.eng.UpdateCounts(projectsID, 5, 13)

	require.Eventually(t, func() bool {
		for _, row := range h.screen.Rows() {
			if row.Node.MailboxID == projectsID {
				return row.Node.UnreadCount == 5 && row.Node.TotalCount == 13
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

// Teardown with a mutation still pending must ask the engine to cancel the
// job. The engine here never publishes outcomes, so the mutation cannot
// resolve before Close runs.
func TestScreenCloseCancelsPendingMutation(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	eng := &fakeEngine{}
	screen, err := NewScreen(ScreenConfig{
		Engine:    eng,
		Bus:       bus,
		Accounts:  []engine.Account{{ID: 1, DisplayName: "Work", Protocol: engine.ProtocolIMAP}},
		Mode:      folders.ViewSingleAccount,
		AccountID: 1,
	})
	require.NoError(t, err)
	require.NoError(t, screen.Start(context.Background()))

	handle, err := screen.RequestCreate(context.Background(), CreateFolderRequest{AccountID: 1, Name: "Invoices"})
	require.NoError(t, err)

	screen.Close(context.Background())

	assert.Equal(t, []engine.Handle{handle}, eng.cancels)
}

func TestScreenRowsCollapseGroups(t *testing.T) {
	h := newScreenHarness(t)

	expandedRows := len(h.screen.Rows())
	h.screen.ToggleExpanded(context.Background(), 1)

	collapsed := h.screen.Rows()
	assert.Less(t, len(collapsed), expandedRows, "collapsing the group hides its folder rows")
	for _, row := range collapsed {
		assert.NotEqual(t, folders.KindUserDefined, row.Node.Kind)
	}
}

func TestScreenSetViewSwitchesMode(t *testing.T) {
	h := newScreenHarness(t)

	h.screen.SetView(folders.ViewCombined, 0, nil)

	var kinds []folders.Kind
	for _, row := range h.screen.Rows() {
		kinds = append(kinds, row.Node.Kind)
	}
	assert.Contains(t, kinds, folders.KindShowAllFolders)
	assert.NotContains(t, kinds, folders.KindUserDefined)
}
