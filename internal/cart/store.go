// Package cart owns the shopping cart: line items, quantities, and the
// aggregate totals checkout renders. Product data inside an item is a
// snapshot taken at add time, not a live catalog reference.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/agrisync/agrisync-engine/internal/catalog"
	"github.com/agrisync/agrisync-engine/internal/discounts"
	"github.com/agrisync/agrisync-engine/pkg/clock"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/kv"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/agrisync/agrisync-engine/pkg/metrics"
	"github.com/shopspring/decimal"
)

// StorageKey is the blob the cart persists to.
const StorageKey = "agrisync_cart"

// DefaultRetention is how long an untouched item survives in the cart.
const DefaultRetention = 7 * 24 * time.Hour

// Item is one cart line. At most one Item exists per product id and the
// quantity is always at least 1; a zero-or-less quantity removes the line.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	AddedAt  time.Time       `json:"added_at"`
}

// AppliedDiscount is the name and amount of the discount a cart qualifies for.
type AppliedDiscount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Store is the cart surface the UI drives.
type Store interface {
	AddItem(ctx context.Context, product catalog.Product, quantity int)
	RemoveItem(ctx context.Context, productID string)
	UpdateQuantity(ctx context.Context, productID string, quantity int)
	Clear(ctx context.Context)
	Items() []Item
	Subtotal() decimal.Decimal
	TotalItems() int
	Discount() (AppliedDiscount, bool)
	FinalTotal() decimal.Decimal
	Sweep(ctx context.Context) int
}

// Calculator is the discount surface the cart delegates pricing to.
type Calculator interface {
	Calculate(orderAmount decimal.Decimal, items []discounts.LineItem) (discounts.Result, bool)
}

type calculatorFunc func(orderAmount decimal.Decimal, items []discounts.LineItem) (discounts.Result, bool)

func (fn calculatorFunc) Calculate(orderAmount decimal.Decimal, items []discounts.LineItem) (discounts.Result, bool) {
	return fn(orderAmount, items)
}

// NoopCalculator returns a calculator that never finds a discount.
func NoopCalculator() Calculator {
	return calculatorFunc(func(decimal.Decimal, []discounts.LineItem) (discounts.Result, bool) {
		return discounts.Result{}, false
	})
}

// Params groups dependencies for the cart store.
type Params struct {
	Store     kv.Store
	Logger    *logger.Logger
	Clock     clock.Clock
	Metrics   *metrics.EngineMetrics
	Discounts Calculator
	// Retention overrides DefaultRetention when positive.
	Retention time.Duration
}

type store struct {
	mu    sync.Mutex
	items []Item

	kv        kv.Store
	logg      *logger.Logger
	clock     clock.Clock
	metrics   *metrics.EngineMetrics
	discounts Calculator
	retention time.Duration
}

// NewStore loads the persisted cart, evicting items older than the retention
// window. A malformed or missing blob degrades to an empty cart.
func NewStore(ctx context.Context, params Params) (Store, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kv store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.Clock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clock is required")
	}
	if params.Discounts == nil {
		params.Discounts = NoopCalculator()
	}
	if params.Retention <= 0 {
		params.Retention = DefaultRetention
	}
	s := &store{
		kv:        params.Store,
		logg:      params.Logger,
		clock:     params.Clock,
		metrics:   params.Metrics,
		discounts: params.Discounts,
		retention: params.Retention,
	}
	s.items = s.load(ctx)
	return s, nil
}

func (s *store) load(ctx context.Context) []Item {
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logg.Warn(s.logg.WithStoreKey(ctx, StorageKey), "cart unreadable, starting empty")
		}
		return nil
	}
	var loaded []Item
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.logg.Warn(s.logg.WithStoreKey(ctx, StorageKey), "cart malformed, starting empty")
		return nil
	}
	kept, evicted := s.splitFresh(loaded)
	s.metrics.AddEvictions(StorageKey, evicted)
	return kept
}

func (s *store) splitFresh(items []Item) ([]Item, int) {
	cutoff := s.clock.Now().Add(-s.retention)
	var kept []Item
	for _, item := range items {
		if item.AddedAt.After(cutoff) {
			kept = append(kept, item)
		}
	}
	return kept, len(items) - len(kept)
}

// persist mirrors the cart to storage. Failures are logged and counted but
// never surfaced; the in-memory cart stays authoritative for the session.
func (s *store) persist(ctx context.Context) {
	raw, err := json.Marshal(s.items)
	if err == nil {
		err = s.kv.Set(ctx, StorageKey, raw)
	}
	if err != nil {
		s.logg.Error(s.logg.WithStoreKey(ctx, StorageKey), "failed to save cart", err)
		s.metrics.IncPersistFailure(StorageKey)
	}
}

// AddItem merges into an existing line for the same product id, otherwise
// appends a new line stamped with the current time. Quantity is trusted to
// be positive; validating it is the caller's job.
func (s *store) AddItem(ctx context.Context, product catalog.Product, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID == product.ID {
			s.items[i].Quantity += quantity
			s.persist(ctx)
			return
		}
	}
	s.items = append(s.items, Item{Product: product, Quantity: quantity, AddedAt: s.clock.Now()})
	s.persist(ctx)
}

func (s *store) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(ctx, productID)
}

func (s *store) removeLocked(ctx context.Context, productID string) {
	kept := s.items[:0]
	for _, item := range s.items {
		if item.Product.ID != productID {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.persist(ctx)
}

// UpdateQuantity sets the line to exactly quantity; zero or less removes it.
func (s *store) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(ctx, productID)
		return
	}
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items[i].Quantity = quantity
			break
		}
	}
	s.persist(ctx)
}

func (s *store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persist(ctx)
}

func (s *store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotalOf(s.items)
}

func subtotalOf(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (s *store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// Discount delegates to the discount calculator over the current subtotal
// and line items.
func (s *store) Discount() (AppliedDiscount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discountLocked()
}

func (s *store) discountLocked() (AppliedDiscount, bool) {
	result, ok := s.discounts.Calculate(subtotalOf(s.items), lineItemsOf(s.items))
	if !ok {
		return AppliedDiscount{}, false
	}
	return AppliedDiscount{Name: result.Discount.Name, Amount: result.Amount}, true
}

// FinalTotal is the subtotal minus the applied discount amount. There is no
// explicit floor at zero; the discount rules' own caps keep it non-negative.
func (s *store) FinalTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := subtotalOf(s.items)
	if applied, ok := s.discountLocked(); ok {
		total = total.Sub(applied.Amount)
	}
	return total
}

// Sweep re-applies the retention window to the live cart and persists the
// result when anything was evicted. It returns the number of evicted lines.
func (s *store) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept, evicted := s.splitFresh(s.items)
	if evicted == 0 {
		return 0
	}
	s.items = kept
	s.metrics.AddEvictions(StorageKey, evicted)
	s.persist(ctx)
	return evicted
}

func lineItemsOf(items []Item) []discounts.LineItem {
	lines := make([]discounts.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, discounts.LineItem{Product: item.Product, Quantity: item.Quantity})
	}
	return lines
}
