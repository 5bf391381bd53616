package folders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildAccountTree materializes a small single-account view by hand:
// Inbox, then a group header with user folders Alpha, Mid, Zulu.
func buildAccountTree(t *testing.T) (*Tree, NodeID) {
	t.Helper()

	tree := NewTree()

	inbox := tree.Alloc(FolderNode{Kind: KindInbox, Name: "Inbox", AccountID: 1})
	tree.AppendRoot(inbox)

	group := tree.Alloc(FolderNode{Kind: KindGroupHeader, Name: "Folders", AccountID: 1, Expanded: true})
	tree.AppendRoot(group)

	for i, name := range []string{"Alpha", "Mid", "Zulu"} {
		id := tree.Alloc(FolderNode{
			MailboxID: int64(10 + i),
			Kind:      KindUserDefined,
			Name:      name,
			AccountID: 1,
		})
		tree.AppendChild(group, id)
	}

	return tree, group
}

func TestTreeWalkOrder(t *testing.T) {
	tree, _ := buildAccountTree(t)

	var names []string
	tree.Walk(func(id NodeID, depth int) bool {
		names = append(names, tree.Node(id).Name)
		return true
	})

	assert.Equal(t, []string{"Inbox", "Folders", "Alpha", "Mid", "Zulu"}, names)
}

func TestHasUserFolder(t *testing.T) {
	tree, _ := buildAccountTree(t)

	assert.True(t, tree.HasUserFolder(1, "Mid", 0))
	assert.True(t, tree.HasUserFolder(1, "mid", 0), "comparison should be case-insensitive")
	assert.False(t, tree.HasUserFolder(1, "Other", 0))
	assert.False(t, tree.HasUserFolder(2, "Mid", 0), "scoped to the account")
	assert.False(t, tree.HasUserFolder(1, "Mid", 11), "the node being renamed is excluded")
}

func TestInsertUserFolderSorted(t *testing.T) {
	tree, group := buildAccountTree(t)

	var changes []Change
	tree.SetOnChange(func(c Change) { changes = append(changes, c) })

	id, ok := tree.InsertUserFolder(FolderNode{MailboxID: 99, Name: "Beta", AccountID: 1})
	require.True(t, ok)

	children := tree.Node(group).Children()
	require.Len(t, children, 4)
	assert.Equal(t, id, children[1], "Beta sorts after Alpha, before Mid")

	require.Len(t, changes, 1)
	assert.Equal(t, OpInsert, changes[0].Op)
	assert.Equal(t, []int{1, 1}, changes[0].Path)
}

func TestInsertUserFolderWithoutGroup(t *testing.T) {
	tree := NewTree()
	inbox := tree.Alloc(FolderNode{Kind: KindInbox, Name: "Inbox", AccountID: 1})
	tree.AppendRoot(inbox)

	_, ok := tree.InsertUserFolder(FolderNode{MailboxID: 99, Name: "Beta", AccountID: 1})
	assert.False(t, ok, "no group header means the caller must rebuild")
}

func TestRemoveMailbox(t *testing.T) {
	tree, group := buildAccountTree(t)

	var changes []Change
	tree.SetOnChange(func(c Change) { changes = append(changes, c) })

	require.True(t, tree.RemoveMailbox(1, 11))
	assert.Len(t, tree.Node(group).Children(), 2)
	require.Len(t, changes, 1)
	assert.Equal(t, OpRemove, changes[0].Op)
	assert.Equal(t, []int{1, 1}, changes[0].Path)

	assert.False(t, tree.RemoveMailbox(1, 500), "unknown mailbox")
}

func TestRemoveLastFolderInGroupRequiresRebuild(t *testing.T) {
	tree, _ := buildAccountTree(t)

	require.True(t, tree.RemoveMailbox(1, 10))
	require.True(t, tree.RemoveMailbox(1, 11))
	assert.False(t, tree.RemoveMailbox(1, 12), "removing the last folder would orphan the group header")
}

func TestRenameMailboxInPlace(t *testing.T) {
	tree, group := buildAccountTree(t)

	var changes []Change
	tree.SetOnChange(func(c Change) { changes = append(changes, c) })

	require.True(t, tree.RenameMailbox(1, 11, "Renamed", "Renamed"))

	node := tree.Node(tree.FindMailbox(1, 11))
	require.NotNil(t, node)
	assert.Equal(t, "Renamed", node.Name)
	assert.Equal(t, "Renamed", node.DisplayAlias)

	// Position is untouched: renames never reorder siblings.
	assert.Equal(t, tree.FindMailbox(1, 11), tree.Node(group).Children()[1])

	require.Len(t, changes, 1)
	assert.Equal(t, OpRename, changes[0].Op)
}

func TestUpdateCounts(t *testing.T) {
	tree, _ := buildAccountTree(t)

	require.True(t, tree.UpdateCounts(1, 12, 5, 40))

	node := tree.Node(tree.FindMailbox(1, 12))
	assert.Equal(t, 5, node.UnreadCount)
	assert.Equal(t, 40, node.TotalCount)

	assert.False(t, tree.UpdateCounts(1, 999, 1, 1))
}

func TestArenaSlotReuse(t *testing.T) {
	tree, _ := buildAccountTree(t)

	before := tree.Len()
	removed := tree.FindMailbox(1, 11)
	require.True(t, tree.RemoveMailbox(1, 11))

	assert.Nil(t, tree.Node(removed), "freed slot reads as nil, never as stale data")
	assert.Equal(t, before-1, tree.Len())

	id, ok := tree.InsertUserFolder(FolderNode{MailboxID: 77, Name: "Recycled", AccountID: 1})
	require.True(t, ok)
	assert.Equal(t, removed, id, "freed slot is reused")
	assert.Equal(t, before, tree.Len())
}

func TestResetClearsEverything(t *testing.T) {
	tree, _ := buildAccountTree(t)

	tree.Reset()
	assert.Zero(t, tree.Len())
	assert.Empty(t, tree.Roots())
	assert.Equal(t, InvalidNode, tree.FindMailbox(1, 10))
}
