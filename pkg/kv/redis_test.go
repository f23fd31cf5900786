package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockCmdable struct {
	values map[string][]byte
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{values: map[string][]byte{}}
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	value, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(string(value))
	return cmd
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	switch v := value.(type) {
	case []byte:
		m.values[key] = v
	case string:
		m.values[key] = []byte(v)
	default:
		cmd.SetErr(errors.New("unsupported value type"))
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := m.values[key]; ok {
			delete(m.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func TestRedisStoreNamespacesKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mock := newMockCmdable()
	store := &Redis{store: mock}

	if err := store.Set(ctx, "agrisync_discounts", []byte(`[]`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok := mock.values["agrisync:agrisync_discounts"]; !ok {
		t.Fatalf("expected namespaced key, stored keys: %v", mock.values)
	}

	got, err := store.Get(ctx, "agrisync_discounts")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("unexpected value %s", got)
	}

	if err := store.Delete(ctx, "agrisync_discounts"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "agrisync_discounts"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStoreRequiresConnection(t *testing.T) {
	t.Parallel()

	store := &Redis{}
	if _, err := store.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized store")
	}
}
