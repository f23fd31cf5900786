package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteUpsertAndPing(t *testing.T) {
	t.Parallel()

	store, err := NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	require.NoError(t, store.Set(ctx, "agrisync_cart", []byte(`[]`)))
	require.NoError(t, store.Set(ctx, "agrisync_cart", []byte(`[{"quantity":1}]`)))

	raw, err := store.Get(ctx, "agrisync_cart")
	require.NoError(t, err)
	require.JSONEq(t, `[{"quantity":1}]`, string(raw))
}

func TestSQLiteKeysAreIsolated(t *testing.T) {
	t.Parallel()

	store, err := NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "agrisync_cart", []byte(`"cart"`)))
	require.NoError(t, store.Set(ctx, "agrisync_discounts", []byte(`"discounts"`)))

	require.NoError(t, store.Delete(ctx, "agrisync_cart"))

	_, err = store.Get(ctx, "agrisync_cart")
	require.ErrorIs(t, err, ErrNotFound)

	raw, err := store.Get(ctx, "agrisync_discounts")
	require.NoError(t, err)
	require.Equal(t, `"discounts"`, string(raw))
}
