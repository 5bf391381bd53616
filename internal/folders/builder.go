package folders

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mailfold/mailfold/internal/engine"
)

// ViewMode selects which tree variant the builder produces.
type ViewMode int

const (
	// ViewCombined shows aggregated system categories across all accounts.
	ViewCombined ViewMode = iota
	// ViewSingleAccount shows one account's system and user folders.
	ViewSingleAccount
	// ViewMoveTarget shows selectable move destinations grouped by account.
	ViewMoveTarget
	// ViewAccountList shows the two-level expandable account overview.
	ViewAccountList
)

func (m ViewMode) String() string {
	switch m {
	case ViewCombined:
		return "combined"
	case ViewSingleAccount:
		return "single-account"
	case ViewMoveTarget:
		return "move-target"
	case ViewAccountList:
		return "account-list"
	default:
		return "unknown"
	}
}

// MoveSource identifies the mail being moved when building the move-target
// view. Its own folder is excluded from the destination list.
type MoveSource struct {
	AccountID int64
	MailboxID int64
	FromIMAP  bool
}

// View is the configuration for one list build.
type View struct {
	Mode      ViewMode
	AccountID int64 // scope for ViewSingleAccount
	Accounts  []engine.Account
	Colors    map[int64]string // per-account colors from config
	Source    *MoveSource      // required for ViewMoveTarget
	Expanded  map[int64]bool   // per-group expand state for ViewAccountList
}

// systemOrder is the fixed display order of the system categories.
var systemOrder = []Kind{
	KindInbox,
	KindPrioritySenders,
	KindStarred,
	KindDrafts,
	KindOutbox,
	KindSent,
	KindSpam,
	KindTrash,
}

// optionalCategory reports whether the combined view may skip the category
// when its aggregate total is zero.
func optionalCategory(k Kind) bool {
	return k == KindPrioritySenders || k == KindStarred || k == KindDrafts || k == KindOutbox
}

func systemName(k Kind) string {
	switch k {
	case KindInbox:
		return "Inbox"
	case KindPrioritySenders:
		return "Priority senders"
	case KindStarred:
		return "Starred"
	case KindDrafts:
		return "Drafts"
	case KindOutbox:
		return "Outbox"
	case KindSent:
		return "Sent"
	case KindSpam:
		return "Spam"
	case KindTrash:
		return "Trash"
	default:
		return k.String()
	}
}

func mailboxTypeFor(k Kind) (engine.MailboxType, bool) {
	switch k {
	case KindInbox:
		return engine.MailboxInbox, true
	case KindDrafts:
		return engine.MailboxDrafts, true
	case KindOutbox:
		return engine.MailboxOutbox, true
	case KindSent:
		return engine.MailboxSent, true
	case KindSpam:
		return engine.MailboxSpam, true
	case KindTrash:
		return engine.MailboxTrash, true
	default:
		return 0, false
	}
}

func kindForType(t engine.MailboxType) Kind {
	switch t {
	case engine.MailboxInbox:
		return KindInbox
	case engine.MailboxDrafts:
		return KindDrafts
	case engine.MailboxOutbox:
		return KindOutbox
	case engine.MailboxSent:
		return KindSent
	case engine.MailboxSpam:
		return KindSpam
	case engine.MailboxTrash:
		return KindTrash
	default:
		return KindUserDefined
	}
}

// listable reports whether a snapshot record may appear as a user folder
// row. Provider-internal containers (e.g. "[Gmail]") and non-selectable
// entries are excluded.
func listable(rec engine.MailboxRecord) bool {
	if !rec.Selectable {
		return false
	}
	return !strings.HasPrefix(rec.Name, "[Gmail]")
}

// ListBuilder materializes a Tree variant from engine snapshots plus the
// view configuration. It owns insertion ordering and the special-casing of
// system folders.
type ListBuilder struct {
	engine engine.Engine
	colors *ColorRegistry
	logger *log.Logger
}

func NewListBuilder(eng engine.Engine, colors *ColorRegistry) *ListBuilder {
	return &ListBuilder{engine: eng, colors: colors}
}

// SetLogger sets an optional debug logger.
func (b *ListBuilder) SetLogger(logger *log.Logger) {
	b.logger = logger
}

func (b *ListBuilder) logf(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Printf(format, args...)
	}
}

// Build rebuilds the tree in place for the given view and emits a single
// full-rebuild change on success. The color registry is refreshed from the
// view's account list on every build.
func (b *ListBuilder) Build(ctx context.Context, tree *Tree, view View) error {
	for _, acct := range view.Accounts {
		b.colors.Add(acct.ID, view.Colors[acct.ID])
	}

	tree.Reset()

	var err error
	switch view.Mode {
	case ViewCombined:
		err = b.buildCombined(ctx, tree)
	case ViewSingleAccount:
		err = b.buildSingleAccount(ctx, tree, view.AccountID)
	case ViewMoveTarget:
		err = b.buildMoveTarget(ctx, tree, view)
	case ViewAccountList:
		err = b.buildAccountList(ctx, tree, view)
	default:
		err = fmt.Errorf("unknown view mode %d", view.Mode)
	}
	if err != nil {
		return err
	}

	b.logf("built %s view: %d rows", view.Mode, tree.Len())
	tree.NotifyRebuilt()
	return nil
}

func (b *ListBuilder) categoryCounts(ctx context.Context, k Kind) (unread, total int, err error) {
	switch k {
	case KindPrioritySenders:
		return b.engine.GetPrioritySenderCount(ctx)
	case KindStarred:
		return b.engine.GetFavouriteCount(ctx)
	default:
		t, ok := mailboxTypeFor(k)
		if !ok {
			return 0, 0, fmt.Errorf("no aggregate query for %s", k)
		}
		return b.engine.GetCombinedCountByType(ctx, t)
	}
}

func (b *ListBuilder) buildCombined(ctx context.Context, tree *Tree) error {
	if err := b.appendCombinedCategories(ctx, tree, InvalidNode); err != nil {
		return err
	}

	all := tree.Alloc(FolderNode{Kind: KindShowAllFolders, Name: "Show all folders"})
	tree.AppendRoot(all)
	return nil
}

// appendCombinedCategories emits the aggregated category rows, skipping the
// optional ones when empty. Inbox, Sent, Spam and Trash are always present.
func (b *ListBuilder) appendCombinedCategories(ctx context.Context, tree *Tree, parent NodeID) error {
	for _, k := range systemOrder {
		unread, total, err := b.categoryCounts(ctx, k)
		if err != nil {
			return fmt.Errorf("aggregate counts for %s: %w", k, err)
		}
		if optionalCategory(k) && total == 0 {
			continue
		}

		id := tree.Alloc(FolderNode{
			Kind:         k,
			Name:         systemName(k),
			DisplayAlias: systemName(k),
			UnreadCount:  unread,
			TotalCount:   total,
		})
		if parent == InvalidNode {
			tree.AppendRoot(id)
		} else {
			tree.AppendChild(parent, id)
		}
	}
	return nil
}

func (b *ListBuilder) buildSingleAccount(ctx context.Context, tree *Tree, accountID int64) error {
	snapshot, err := b.engine.GetMailboxSnapshot(ctx, accountID)
	if err != nil {
		return fmt.Errorf("mailbox snapshot for account %d: %w", accountID, err)
	}

	if err := b.appendAccountCategories(ctx, tree, InvalidNode, accountID, snapshot); err != nil {
		return err
	}

	var user []engine.MailboxRecord
	for _, rec := range snapshot {
		if rec.Type == engine.MailboxUser && listable(rec) {
			user = append(user, rec)
		}
	}
	if len(user) == 0 {
		return nil
	}

	group := tree.Alloc(FolderNode{
		Kind:      KindGroupHeader,
		Name:      "Folders",
		AccountID: accountID,
		Expanded:  true,
	})
	tree.AppendRoot(group)

	for _, rec := range user {
		id := tree.Alloc(FolderNode{
			MailboxID:    rec.ID,
			Kind:         KindUserDefined,
			Name:         rec.Name,
			DisplayAlias: rec.Alias,
			UnreadCount:  rec.UnreadCount,
			TotalCount:   rec.TotalCount,
			AccountID:    accountID,
		})
		tree.AppendChild(group, id)
	}
	return nil
}

// appendAccountCategories emits the mandatory system categories for one
// account in fixed order. Priority-senders and starred have no per-account
// mailbox; their slots use the aggregate queries.
func (b *ListBuilder) appendAccountCategories(ctx context.Context, tree *Tree, parent NodeID, accountID int64, snapshot []engine.MailboxRecord) error {
	byType := make(map[engine.MailboxType]engine.MailboxRecord, len(snapshot))
	for _, rec := range snapshot {
		if rec.Type != engine.MailboxUser {
			byType[rec.Type] = rec
		}
	}

	for _, k := range systemOrder {
		node := FolderNode{
			Kind:         k,
			Name:         systemName(k),
			DisplayAlias: systemName(k),
			AccountID:    accountID,
		}

		if k == KindPrioritySenders || k == KindStarred {
			unread, total, err := b.categoryCounts(ctx, k)
			if err != nil {
				return fmt.Errorf("aggregate counts for %s: %w", k, err)
			}
			node.UnreadCount, node.TotalCount = unread, total
		} else if t, ok := mailboxTypeFor(k); ok {
			if rec, ok := byType[t]; ok {
				node.MailboxID = rec.ID
				node.UnreadCount = rec.UnreadCount
				node.TotalCount = rec.TotalCount
			}
		}

		id := tree.Alloc(node)
		if parent == InvalidNode {
			tree.AppendRoot(id)
		} else {
			tree.AppendChild(parent, id)
		}
	}
	return nil
}

func (b *ListBuilder) buildMoveTarget(ctx context.Context, tree *Tree, view View) error {
	if view.Source == nil {
		return fmt.Errorf("move-target view requires a move source")
	}
	src := *view.Source

	for _, acct := range view.Accounts {
		snapshot, err := b.engine.GetMailboxSnapshot(ctx, acct.ID)
		if err != nil {
			return fmt.Errorf("mailbox snapshot for account %d: %w", acct.ID, err)
		}

		// Only the owning account's group starts expanded, unless the mail
		// being moved is not on an IMAP account.
		header := tree.Alloc(FolderNode{
			Kind:      KindAccountHeader,
			Name:      acct.DisplayName,
			AccountID: acct.ID,
			Expanded:  acct.ID == src.AccountID || !src.FromIMAP,
		})
		tree.AppendRoot(header)

		create := tree.Alloc(FolderNode{
			Kind:      KindCreateRoot,
			Name:      "Create folder",
			AccountID: acct.ID,
		})
		tree.AppendChild(header, create)

		for _, rec := range snapshot {
			if rec.Type != engine.MailboxUser || !listable(rec) {
				continue
			}
			if acct.ID == src.AccountID && rec.ID == src.MailboxID {
				continue
			}
			id := tree.Alloc(FolderNode{
				MailboxID:    rec.ID,
				Kind:         KindUserDefined,
				Name:         rec.Name,
				DisplayAlias: rec.Alias,
				UnreadCount:  rec.UnreadCount,
				TotalCount:   rec.TotalCount,
				AccountID:    acct.ID,
			})
			tree.AppendChild(header, id)
		}
	}
	return nil
}

func (b *ListBuilder) buildAccountList(ctx context.Context, tree *Tree, view View) error {
	combined := tree.Alloc(FolderNode{
		Kind:     KindGroupHeader,
		Name:     "All accounts",
		Expanded: view.Expanded[0],
	})
	tree.AppendRoot(combined)
	if err := b.appendCombinedCategories(ctx, tree, combined); err != nil {
		return err
	}

	for _, acct := range view.Accounts {
		snapshot, err := b.engine.GetMailboxSnapshot(ctx, acct.ID)
		if err != nil {
			return fmt.Errorf("mailbox snapshot for account %d: %w", acct.ID, err)
		}

		header := tree.Alloc(FolderNode{
			Kind:      KindAccountHeader,
			Name:      acct.DisplayName,
			AccountID: acct.ID,
			Expanded:  view.Expanded[acct.ID],
		})
		tree.AppendRoot(header)

		if err := b.appendAccountCategories(ctx, tree, header, acct.ID, snapshot); err != nil {
			return err
		}
	}
	return nil
}
