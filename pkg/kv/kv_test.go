package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestStoreContract(t *testing.T) {
	t.Parallel()

	backends := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"file": func(t *testing.T) Store {
			store, err := NewFiles(t.TempDir())
			if err != nil {
				t.Fatalf("new file store: %v", err)
			}
			return store
		},
		"sqlite": func(t *testing.T) Store {
			store, err := NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
			if err != nil {
				t.Fatalf("new sqlite store: %v", err)
			}
			return store
		},
	}

	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := build(t)

			if _, err := store.Get(ctx, "agrisync_cart"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for missing key, got %v", err)
			}

			if err := store.Set(ctx, "agrisync_cart", []byte(`[{"quantity":2}]`)); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			got, err := store.Get(ctx, "agrisync_cart")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if string(got) != `[{"quantity":2}]` {
				t.Fatalf("round trip mismatch: %s", got)
			}

			if err := store.Set(ctx, "agrisync_cart", []byte(`[]`)); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			got, err = store.Get(ctx, "agrisync_cart")
			if err != nil {
				t.Fatalf("get after overwrite failed: %v", err)
			}
			if string(got) != `[]` {
				t.Fatalf("expected last write to win, got %s", got)
			}

			if err := store.Delete(ctx, "agrisync_cart"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if _, err := store.Get(ctx, "agrisync_cart"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			// Deleting an absent key is a no-op, matching removeItem semantics.
			if err := store.Delete(ctx, "agrisync_cart"); err != nil {
				t.Fatalf("second delete should be a no-op: %v", err)
			}
		})
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory()
	if err := store.Set(ctx, "k", []byte("abc")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got[0] = 'z'

	again, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %s", again)
	}
}
