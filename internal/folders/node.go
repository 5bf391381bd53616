package folders

// Kind classifies one row of the folder tree. System kinds map onto fixed
// mailbox categories; the remaining kinds are synthetic rows materialized by
// the list builder and carry no mailbox id.
type Kind int

const (
	KindInbox Kind = iota
	KindPrioritySenders
	KindStarred
	KindDrafts
	KindOutbox
	KindSent
	KindSpam
	KindTrash
	KindUserDefined
	KindAccountHeader
	KindGroupHeader
	KindShowAllFolders
	KindCreateRoot
)

func (k Kind) String() string {
	switch k {
	case KindInbox:
		return "inbox"
	case KindPrioritySenders:
		return "priority-senders"
	case KindStarred:
		return "starred"
	case KindDrafts:
		return "drafts"
	case KindOutbox:
		return "outbox"
	case KindSent:
		return "sent"
	case KindSpam:
		return "spam"
	case KindTrash:
		return "trash"
	case KindUserDefined:
		return "user-defined"
	case KindAccountHeader:
		return "account-header"
	case KindGroupHeader:
		return "group-header"
	case KindShowAllFolders:
		return "show-all-folders"
	case KindCreateRoot:
		return "create-root"
	default:
		return "unknown"
	}
}

// System reports whether the kind is one of the fixed mailbox categories.
func (k Kind) System() bool {
	return k >= KindInbox && k <= KindTrash
}

// Synthetic reports whether rows of this kind never carry a mailbox id.
func (k Kind) Synthetic() bool {
	return k == KindAccountHeader || k == KindGroupHeader || k == KindShowAllFolders || k == KindCreateRoot
}

// FolderNode is one row in the tree. Nodes live in the tree's arena and are
// addressed by NodeID; they never hold pointers to each other.
type FolderNode struct {
	// MailboxID is zero for synthetic rows.
	MailboxID    int64
	Kind         Kind
	Name         string
	DisplayAlias string
	UnreadCount  int
	TotalCount   int
	AccountID    int64

	// Expanded applies to account/group header rows in expandable views.
	Expanded bool

	parent   NodeID
	children []NodeID
	inUse    bool
}

// Children returns the ordered child ids. The slice is owned by the tree and
// must not be mutated by callers.
func (n *FolderNode) Children() []NodeID {
	return n.children
}

// Parent returns the parent node id, or InvalidNode for root rows.
func (n *FolderNode) Parent() NodeID {
	return n.parent
}
