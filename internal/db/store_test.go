package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, path
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestExpandStateRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveExpanded(ctx, 1, true))
	require.NoError(t, store.SaveExpanded(ctx, 2, false))

	got, err := store.LoadExpanded(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{1: true, 2: false}, got)

	// Upsert flips the existing row.
	require.NoError(t, store.SaveExpanded(ctx, 1, false))
	got, err = store.LoadExpanded(ctx)
	require.NoError(t, err)
	assert.False(t, got[1])
}

func TestAccountColorRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAccountColor(ctx, 1, "#112233"))
	require.NoError(t, store.SaveAccountColor(ctx, 1, "#445566"))

	got, err := store.LoadAccountColors(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "#445566"}, got)
}

func TestDeleteAccount(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveExpanded(ctx, 1, true))
	require.NoError(t, store.SaveAccountColor(ctx, 1, "#112233"))
	require.NoError(t, store.SaveAccountColor(ctx, 2, "#778899"))

	require.NoError(t, store.DeleteAccount(ctx, 1))

	expanded, err := store.LoadExpanded(ctx)
	require.NoError(t, err)
	assert.Empty(t, expanded)

	colors, err := store.LoadAccountColors(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{2: "#778899"}, colors)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.SaveExpanded(ctx, 3, true))
	require.NoError(t, store.Close())

	// Reopening runs the migrations again; they must be idempotent.
	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.LoadExpanded(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{3: true}, got)
}
