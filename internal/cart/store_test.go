package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/agrisync/agrisync-engine/internal/catalog"
	"github.com/agrisync/agrisync-engine/internal/discounts"
	"github.com/agrisync/agrisync-engine/pkg/clock"
	"github.com/agrisync/agrisync-engine/pkg/kv"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, blob kv.Store, calc Calculator) (Store, *clock.Fake) {
	t.Helper()
	if blob == nil {
		blob = kv.NewMemory()
	}
	fake := clock.NewFake(testNow)
	store, err := NewStore(context.Background(), Params{
		Store:     blob,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:     fake,
		Discounts: calc,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, fake
}

func product(id, farmerID, price string) catalog.Product {
	return catalog.Product{
		ID:       id,
		FarmerID: farmerID,
		Price:    decimal.RequireFromString(price),
	}
}

func TestAddItemMergesByProductID(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil, nil)
	ctx := context.Background()
	apples := product("p1", "farmer-a", "3.50")

	store.AddItem(ctx, apples, 2)
	store.AddItem(ctx, apples, 3)

	items := store.Items()
	if len(items) != 1 {
		t.Fatalf("expected one line per product id, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", items[0].Quantity)
	}
}

func TestUpdateQuantitySetsAbsoluteValue(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil, nil)
	ctx := context.Background()
	store.AddItem(ctx, product("p1", "farmer-a", "3.50"), 4)

	store.UpdateQuantity(ctx, "p1", 2)
	if items := store.Items(); items[0].Quantity != 2 {
		t.Fatalf("expected absolute set to 2, got %d", items[0].Quantity)
	}
}

func TestUpdateQuantityZeroOrLessRemoves(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil, nil)
	ctx := context.Background()
	store.AddItem(ctx, product("p1", "farmer-a", "3.50"), 4)
	store.AddItem(ctx, product("p2", "farmer-a", "1.00"), 1)

	store.UpdateQuantity(ctx, "p1", 0)
	store.UpdateQuantity(ctx, "p2", -3)

	if items := store.Items(); len(items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(items))
	}
}

func TestRemoveItemIsSilentWhenAbsent(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil, nil)
	ctx := context.Background()
	store.AddItem(ctx, product("p1", "farmer-a", "3.50"), 1)

	store.RemoveItem(ctx, "p9")
	if items := store.Items(); len(items) != 1 {
		t.Fatalf("remove of absent id must not touch other lines, got %d", len(items))
	}
}

func TestTotalsAcrossFarmers(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, nil, nil)
	ctx := context.Background()
	store.AddItem(ctx, product("p1", "farmer-a", "10"), 2)
	store.AddItem(ctx, product("p2", "farmer-a", "20"), 1)
	store.AddItem(ctx, product("p3", "farmer-b", "5"), 3)

	if got := store.Subtotal(); !got.Equal(decimal.RequireFromString("55")) {
		t.Fatalf("expected subtotal 55, got %s", got)
	}
	if got := store.TotalItems(); got != 6 {
		t.Fatalf("expected 6 total items, got %d", got)
	}
	if _, ok := store.Discount(); ok {
		t.Fatal("no discount rules configured, none should apply")
	}
	if got := store.FinalTotal(); !got.Equal(decimal.RequireFromString("55")) {
		t.Fatalf("expected final total 55 with no discount, got %s", got)
	}
}

func TestFinalTotalSubtractsDiscount(t *testing.T) {
	t.Parallel()

	calc := calculatorFunc(func(orderAmount decimal.Decimal, items []discounts.LineItem) (discounts.Result, bool) {
		return discounts.Result{
			Discount: discounts.Discount{Name: "harvest sale"},
			Amount:   decimal.RequireFromString("7"),
		}, true
	})
	store, _ := newTestStore(t, nil, calc)
	ctx := context.Background()
	store.AddItem(ctx, product("p1", "farmer-a", "10"), 2)

	applied, ok := store.Discount()
	if !ok || applied.Name != "harvest sale" || !applied.Amount.Equal(decimal.RequireFromString("7")) {
		t.Fatalf("unexpected applied discount %+v ok=%v", applied, ok)
	}
	if got := store.FinalTotal(); !got.Equal(decimal.RequireFromString("13")) {
		t.Fatalf("expected final total 13, got %s", got)
	}
}

func TestReloadEvictsStaleItems(t *testing.T) {
	t.Parallel()

	blob := kv.NewMemory()
	store, fake := newTestStore(t, blob, nil)
	ctx := context.Background()

	store.AddItem(ctx, product("stale", "farmer-a", "1"), 1)
	fake.Advance(8 * 24 * time.Hour)
	store.AddItem(ctx, product("fresh", "farmer-a", "1"), 1)

	reloaded, err := NewStore(ctx, Params{
		Store:  blob,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:  clock.NewFake(fake.Now()),
	})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	items := reloaded.Items()
	if len(items) != 1 || items[0].Product.ID != "fresh" {
		t.Fatalf("expected only the fresh item after reload, got %+v", items)
	}
}

func TestSweepEvictsAndPersists(t *testing.T) {
	t.Parallel()

	blob := kv.NewMemory()
	store, fake := newTestStore(t, blob, nil)
	ctx := context.Background()

	store.AddItem(ctx, product("old", "farmer-a", "1"), 1)
	fake.Advance(6 * 24 * time.Hour)
	store.AddItem(ctx, product("new", "farmer-a", "1"), 1)
	fake.Advance(2 * 24 * time.Hour)

	if evicted := store.Sweep(ctx); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if evicted := store.Sweep(ctx); evicted != 0 {
		t.Fatalf("second sweep should find nothing, got %d", evicted)
	}

	reloaded, err := NewStore(ctx, Params{
		Store:  blob,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:  clock.NewFake(fake.Now()),
	})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	items := reloaded.Items()
	if len(items) != 1 || items[0].Product.ID != "new" {
		t.Fatalf("sweep result was not persisted, got %+v", items)
	}
}

func TestUnreadableBlobStartsEmpty(t *testing.T) {
	t.Parallel()

	blob := kv.NewMemory()
	if err := blob.Set(context.Background(), StorageKey, []byte("not json")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	store, _ := newTestStore(t, blob, nil)
	if items := store.Items(); len(items) != 0 {
		t.Fatalf("expected empty cart for malformed blob, got %d", len(items))
	}
}

type failingKV struct {
	kv.Store
	fail bool
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return context.DeadlineExceeded
	}
	return f.Store.Set(ctx, key, value)
}

func TestWriteFailureKeepsMemoryAuthoritative(t *testing.T) {
	t.Parallel()

	blob := &failingKV{Store: kv.NewMemory(), fail: true}
	store, _ := newTestStore(t, blob, nil)
	ctx := context.Background()

	store.AddItem(ctx, product("p1", "farmer-a", "2"), 2)
	if got := store.TotalItems(); got != 2 {
		t.Fatalf("in-memory cart must survive a write failure, got %d items", got)
	}
}
