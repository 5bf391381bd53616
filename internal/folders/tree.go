package folders

import "strings"

// NodeID is a stable index into the tree's node arena.
type NodeID int

// InvalidNode is returned by lookups that find nothing.
const InvalidNode NodeID = -1

// ChangeOp describes how the tree changed.
type ChangeOp int

const (
	// OpFullRebuild means the whole tree was rebuilt and any cached row
	// state in the presentation layer is stale.
	OpFullRebuild ChangeOp = iota
	OpInsert
	OpRemove
	OpRename
	OpCounts
)

// Change is the notification sent to the presentation layer after every tree
// mutation. Path is the root-relative index path of the affected row at the
// time of the change (for OpRemove, its position before removal).
type Change struct {
	Op   ChangeOp
	Node NodeID
	Path []int
}

// Tree is the in-memory folder hierarchy for one screen instance. Nodes are
// stored in an arena and addressed by index; removal marks slots free for
// reuse instead of unlinking a pointer graph, so a stale NodeID can never
// dangle.
//
// The tree is owned by a single screen and is not safe for concurrent use.
type Tree struct {
	nodes    []FolderNode
	freeList []NodeID
	roots    []NodeID
	onChange func(Change)
}

func NewTree() *Tree {
	return &Tree{}
}

// SetOnChange installs the change listener. Only one listener is supported;
// passing nil disables notifications.
func (t *Tree) SetOnChange(fn func(Change)) {
	t.onChange = fn
}

func (t *Tree) notify(c Change) {
	if t.onChange != nil {
		t.onChange(c)
	}
}

// Reset discards all nodes. No change is emitted; callers rebuilding the
// tree call NotifyRebuilt once the new content is in place.
func (t *Tree) Reset() {
	t.nodes = t.nodes[:0]
	t.freeList = t.freeList[:0]
	t.roots = t.roots[:0]
}

// NotifyRebuilt emits a full-rebuild change.
func (t *Tree) NotifyRebuilt() {
	t.notify(Change{Op: OpFullRebuild, Node: InvalidNode})
}

// Alloc places the node in the arena and returns its id. The node starts
// detached; attach it with AppendRoot or AppendChild.
func (t *Tree) Alloc(node FolderNode) NodeID {
	node.parent = InvalidNode
	node.children = nil
	node.inUse = true

	if n := len(t.freeList); n > 0 {
		id := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.nodes[id] = node
		return id
	}

	t.nodes = append(t.nodes, node)
	return NodeID(len(t.nodes) - 1)
}

// Node returns the node for id, or nil if the id is out of range or the slot
// is free.
func (t *Tree) Node(id NodeID) *FolderNode {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	if !t.nodes[id].inUse {
		return nil
	}
	return &t.nodes[id]
}

// Roots returns the ordered top-level rows. The slice is owned by the tree.
func (t *Tree) Roots() []NodeID {
	return t.roots
}

// Len reports the number of live nodes.
func (t *Tree) Len() int {
	return len(t.nodes) - len(t.freeList)
}

// AppendRoot attaches a detached node as the last top-level row.
func (t *Tree) AppendRoot(id NodeID) {
	t.roots = append(t.roots, id)
}

// AppendChild attaches a detached node as the last child of parent.
func (t *Tree) AppendChild(parent, child NodeID) {
	t.nodes[child].parent = parent
	t.nodes[parent].children = append(t.nodes[parent].children, child)
}

// Walk visits every attached node in display order. Return false from fn to
// stop the walk.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	var walk func(id NodeID, depth int) bool
	walk = func(id NodeID, depth int) bool {
		if !fn(id, depth) {
			return false
		}
		for _, child := range t.nodes[id].children {
			if !walk(child, depth+1) {
				return false
			}
		}
		return true
	}

	for _, root := range t.roots {
		if !walk(root, 0) {
			return
		}
	}
}

// FindMailbox returns the node carrying the given mailbox id, scoped to the
// account when accountID is non-zero.
func (t *Tree) FindMailbox(accountID, mailboxID int64) NodeID {
	found := InvalidNode
	t.Walk(func(id NodeID, _ int) bool {
		n := &t.nodes[id]
		if n.MailboxID == mailboxID && (accountID == 0 || n.AccountID == accountID) {
			found = id
			return false
		}
		return true
	})
	return found
}

// HasUserFolder reports whether a user-defined folder with the given name
// already exists in the account's subtree. The comparison is
// case-insensitive; excludeMailboxID carves out the node being renamed.
func (t *Tree) HasUserFolder(accountID int64, name string, excludeMailboxID int64) bool {
	exists := false
	t.Walk(func(id NodeID, _ int) bool {
		n := &t.nodes[id]
		if n.Kind != KindUserDefined || n.AccountID != accountID {
			return true
		}
		if n.MailboxID == excludeMailboxID {
			return true
		}
		if strings.EqualFold(n.Name, name) {
			exists = true
			return false
		}
		return true
	})
	return exists
}

// Path returns the root-relative index path of id, or nil if the node is
// detached.
func (t *Tree) Path(id NodeID) []int {
	var path []int

	for id != InvalidNode {
		parent := t.nodes[id].parent

		siblings := t.roots
		if parent != InvalidNode {
			siblings = t.nodes[parent].children
		}

		pos := -1
		for i, sib := range siblings {
			if sib == id {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil
		}

		path = append([]int{pos}, path...)
		id = parent
	}

	return path
}

// userFolderGroup finds the group header that holds the account's
// user-defined folders.
func (t *Tree) userFolderGroup(accountID int64) NodeID {
	found := InvalidNode
	t.Walk(func(id NodeID, _ int) bool {
		n := &t.nodes[id]
		if n.Kind == KindGroupHeader && n.AccountID == accountID {
			found = id
			return false
		}
		return true
	})
	return found
}

// InsertUserFolder inserts a user-defined folder under the account's group
// header, keeping siblings in case-insensitive name order. It returns false
// when no group header is materialized for the account, in which case the
// caller must rebuild the tree instead.
func (t *Tree) InsertUserFolder(node FolderNode) (NodeID, bool) {
	group := t.userFolderGroup(node.AccountID)
	if group == InvalidNode {
		return InvalidNode, false
	}

	node.Kind = KindUserDefined
	id := t.Alloc(node)
	t.nodes[id].parent = group

	children := t.nodes[group].children
	pos := len(children)
	for i, sib := range children {
		if strings.ToLower(node.Name) < strings.ToLower(t.nodes[sib].Name) {
			pos = i
			break
		}
	}

	children = append(children, InvalidNode)
	copy(children[pos+1:], children[pos:])
	children[pos] = id
	t.nodes[group].children = children

	t.notify(Change{Op: OpInsert, Node: id, Path: t.Path(id)})
	return id, true
}

// RemoveMailbox detaches and frees the node carrying mailboxID. It returns
// false when the node is absent or when removing it would leave an empty
// group header behind; the caller rebuilds in that case.
func (t *Tree) RemoveMailbox(accountID, mailboxID int64) bool {
	id := t.FindMailbox(accountID, mailboxID)
	if id == InvalidNode {
		return false
	}

	parent := t.nodes[id].parent
	if parent != InvalidNode && t.nodes[parent].Kind == KindGroupHeader && len(t.nodes[parent].children) == 1 {
		// Last folder in its group: the header has to go too.
		return false
	}

	path := t.Path(id)
	t.detach(id)
	t.release(id)

	t.notify(Change{Op: OpRemove, Node: id, Path: path})
	return true
}

// RenameMailbox patches the node's name and alias in place.
func (t *Tree) RenameMailbox(accountID, mailboxID int64, name, alias string) bool {
	id := t.FindMailbox(accountID, mailboxID)
	if id == InvalidNode {
		return false
	}

	t.nodes[id].Name = name
	t.nodes[id].DisplayAlias = alias

	t.notify(Change{Op: OpRename, Node: id, Path: t.Path(id)})
	return true
}

// UpdateCounts patches the node's unread/total counts in place.
func (t *Tree) UpdateCounts(accountID, mailboxID int64, unread, total int) bool {
	id := t.FindMailbox(accountID, mailboxID)
	if id == InvalidNode {
		return false
	}

	t.nodes[id].UnreadCount = unread
	t.nodes[id].TotalCount = total

	t.notify(Change{Op: OpCounts, Node: id, Path: t.Path(id)})
	return true
}

func (t *Tree) detach(id NodeID) {
	parent := t.nodes[id].parent

	siblings := &t.roots
	if parent != InvalidNode {
		siblings = &t.nodes[parent].children
	}

	for i, sib := range *siblings {
		if sib == id {
			*siblings = append((*siblings)[:i], (*siblings)[i+1:]...)
			break
		}
	}

	t.nodes[id].parent = InvalidNode
}

// release marks the node's arena slot (and its whole subtree) free.
func (t *Tree) release(id NodeID) {
	for _, child := range t.nodes[id].children {
		t.release(child)
	}

	t.nodes[id] = FolderNode{parent: InvalidNode}
	t.freeList = append(t.freeList, id)
}
