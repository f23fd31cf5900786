// Package discounts owns the discount rule collection and selects the single
// best-applicable discount for an order.
package discounts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/agrisync/agrisync-engine/internal/catalog"
	"github.com/agrisync/agrisync-engine/pkg/clock"
	"github.com/agrisync/agrisync-engine/pkg/enums"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/kv"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/agrisync/agrisync-engine/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StorageKey is the blob the discount collection persists to.
const StorageKey = "agrisync_discounts"

// Discount is an administrator-authored pricing rule. The engine stores it
// verbatim; field consistency (including validFrom <= validUntil) is the
// author's responsibility.
type Discount struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	Type              enums.DiscountType   `json:"type"`
	Value             decimal.Decimal      `json:"value"`
	IsPercentage      bool                 `json:"is_percentage"`
	MinOrderAmount    *decimal.Decimal     `json:"min_order_amount,omitempty"`
	MaxDiscountAmount *decimal.Decimal     `json:"max_discount_amount,omitempty"`
	ValidFrom         time.Time            `json:"valid_from"`
	ValidUntil        time.Time            `json:"valid_until"`
	TargetType        enums.DiscountTarget `json:"target_type"`
	TargetValue       string               `json:"target_value,omitempty"`
	FarmerID          string               `json:"farmer_id,omitempty"`
	Active            bool                 `json:"active"`
}

// LineItem is the cart view the calculator matches targets against.
type LineItem struct {
	Product  catalog.Product
	Quantity int
}

// Result pairs the winning discount with the amount it takes off the order.
type Result struct {
	Discount Discount        `json:"discount"`
	Amount   decimal.Decimal `json:"amount"`
}

// CreateInput carries every Discount field except the generated id.
type CreateInput struct {
	Name              string
	Type              enums.DiscountType
	Value             decimal.Decimal
	IsPercentage      bool
	MinOrderAmount    *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ValidFrom         time.Time
	ValidUntil        time.Time
	TargetType        enums.DiscountTarget
	TargetValue       string
	FarmerID          string
	Active            bool
}

// UpdateInput shallow-merges into an existing Discount; nil fields are left
// untouched.
type UpdateInput struct {
	Name              *string
	Type              *enums.DiscountType
	Value             *decimal.Decimal
	IsPercentage      *bool
	MinOrderAmount    *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	TargetType        *enums.DiscountTarget
	TargetValue       *string
	FarmerID          *string
	Active            *bool
}

// Engine exposes discount rule management and order pricing.
type Engine interface {
	Create(ctx context.Context, input CreateInput) Discount
	Update(ctx context.Context, id string, updates UpdateInput) (Discount, error)
	Delete(ctx context.Context, id string)
	List() []Discount
	Active() []Discount
	Expired() []Discount
	ForProduct(product catalog.Product) (Discount, bool)
	Calculate(orderAmount decimal.Decimal, items []LineItem) (Result, bool)
}

// Params groups dependencies for the discount engine.
type Params struct {
	Store   kv.Store
	Logger  *logger.Logger
	Clock   clock.Clock
	Metrics *metrics.EngineMetrics
}

type engine struct {
	mu        sync.Mutex
	discounts []Discount

	store   kv.Store
	logg    *logger.Logger
	clock   clock.Clock
	metrics *metrics.EngineMetrics
}

// NewEngine loads the persisted rule collection and returns the engine. A
// malformed or missing blob degrades to an empty collection.
func NewEngine(ctx context.Context, params Params) (Engine, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kv store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	if params.Clock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clock is required")
	}
	e := &engine{
		store:   params.Store,
		logg:    params.Logger,
		clock:   params.Clock,
		metrics: params.Metrics,
	}
	e.discounts = e.load(ctx)
	return e, nil
}

func (e *engine) load(ctx context.Context) []Discount {
	raw, err := e.store.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			e.logg.Warn(e.logg.WithStoreKey(ctx, StorageKey), "discount collection unreadable, starting empty")
		}
		return nil
	}
	var loaded []Discount
	if err := json.Unmarshal(raw, &loaded); err != nil {
		e.logg.Warn(e.logg.WithStoreKey(ctx, StorageKey), "discount collection malformed, starting empty")
		return nil
	}
	return loaded
}

// persist mirrors the collection to storage. Failures are logged and counted
// but never surfaced; the in-memory collection stays authoritative.
func (e *engine) persist(ctx context.Context) {
	raw, err := json.Marshal(e.discounts)
	if err == nil {
		err = e.store.Set(ctx, StorageKey, raw)
	}
	if err != nil {
		e.logg.Error(e.logg.WithStoreKey(ctx, StorageKey), "failed to save discounts", err)
		e.metrics.IncPersistFailure(StorageKey)
	}
}

func (e *engine) Create(ctx context.Context, input CreateInput) Discount {
	e.mu.Lock()
	defer e.mu.Unlock()

	discount := Discount{
		ID:                "discount_" + uuid.NewString(),
		Name:              input.Name,
		Type:              input.Type,
		Value:             input.Value,
		IsPercentage:      input.IsPercentage,
		MinOrderAmount:    input.MinOrderAmount,
		MaxDiscountAmount: input.MaxDiscountAmount,
		ValidFrom:         input.ValidFrom,
		ValidUntil:        input.ValidUntil,
		TargetType:        input.TargetType,
		TargetValue:       input.TargetValue,
		FarmerID:          input.FarmerID,
		Active:            input.Active,
	}
	e.discounts = append(e.discounts, discount)
	e.persist(ctx)
	return discount
}

func (e *engine) Update(ctx context.Context, id string, updates UpdateInput) (Discount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.discounts {
		if e.discounts[i].ID != id {
			continue
		}
		merged := mergeDiscount(e.discounts[i], updates)
		e.discounts[i] = merged
		e.persist(ctx)
		return merged, nil
	}
	return Discount{}, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
}

func (e *engine) Delete(ctx context.Context, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.discounts[:0]
	for _, discount := range e.discounts {
		if discount.ID != id {
			kept = append(kept, discount)
		}
	}
	if len(kept) == len(e.discounts) {
		return
	}
	e.discounts = kept
	e.persist(ctx)
}

func (e *engine) List() []Discount {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Discount, len(e.discounts))
	copy(out, e.discounts)
	return out
}

// Active returns rules whose flag is set and whose validity window contains
// the current instant, boundaries included.
func (e *engine) Active() []Discount {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked()
}

func (e *engine) activeLocked() []Discount {
	now := e.clock.Now()
	var active []Discount
	for _, discount := range e.discounts {
		if !discount.Active {
			continue
		}
		if now.Before(discount.ValidFrom) || now.After(discount.ValidUntil) {
			continue
		}
		active = append(active, discount)
	}
	return active
}

// Expired returns rules whose window has passed, regardless of the active flag.
func (e *engine) Expired() []Discount {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var expired []Discount
	for _, discount := range e.discounts {
		if now.After(discount.ValidUntil) {
			expired = append(expired, discount)
		}
	}
	return expired
}

// ForProduct returns the first active rule, in insertion order, whose target
// covers the product.
func (e *engine) ForProduct(product catalog.Product) (Discount, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, discount := range e.activeLocked() {
		if targetMatchesProduct(discount, product) {
			return discount, true
		}
	}
	return Discount{}, false
}

func targetMatchesProduct(discount Discount, product catalog.Product) bool {
	switch discount.TargetType {
	case enums.DiscountTargetAll:
		return true
	case enums.DiscountTargetCategory:
		return discount.TargetValue == string(product.Category)
	case enums.DiscountTargetProduct:
		return discount.TargetValue == product.ID
	}
	return false
}

// Calculate picks the best-applicable discount for the given order subtotal
// and line items. Each active rule is gated on its minimum order amount and
// on whether its target covers at least one line item; the candidate amount
// is value% of the order (or the flat value), clamped to the rule's cap. The
// strictly largest amount wins and earlier rules win ties.
func (e *engine) Calculate(orderAmount decimal.Decimal, items []LineItem) (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var best Result
	found := false
	for _, discount := range e.activeLocked() {
		if discount.MinOrderAmount != nil && orderAmount.LessThan(*discount.MinOrderAmount) {
			continue
		}
		if !targetAppliesToItems(discount, items) {
			continue
		}

		amount := discount.Value
		if discount.IsPercentage {
			amount = orderAmount.Mul(discount.Value).Div(decimal.NewFromInt(100))
		}
		if discount.MaxDiscountAmount != nil && amount.GreaterThan(*discount.MaxDiscountAmount) {
			amount = *discount.MaxDiscountAmount
		}

		if !found || amount.GreaterThan(best.Amount) {
			best = Result{Discount: discount, Amount: amount}
			found = true
		}
	}
	return best, found
}

func targetAppliesToItems(discount Discount, items []LineItem) bool {
	switch discount.TargetType {
	case enums.DiscountTargetAll:
		return true
	case enums.DiscountTargetCategory:
		for _, item := range items {
			if string(item.Product.Category) == discount.TargetValue {
				return true
			}
		}
	case enums.DiscountTargetProduct:
		for _, item := range items {
			if item.Product.ID == discount.TargetValue {
				return true
			}
		}
	}
	return false
}

func mergeDiscount(current Discount, updates UpdateInput) Discount {
	if updates.Name != nil {
		current.Name = *updates.Name
	}
	if updates.Type != nil {
		current.Type = *updates.Type
	}
	if updates.Value != nil {
		current.Value = *updates.Value
	}
	if updates.IsPercentage != nil {
		current.IsPercentage = *updates.IsPercentage
	}
	if updates.MinOrderAmount != nil {
		current.MinOrderAmount = updates.MinOrderAmount
	}
	if updates.MaxDiscountAmount != nil {
		current.MaxDiscountAmount = updates.MaxDiscountAmount
	}
	if updates.ValidFrom != nil {
		current.ValidFrom = *updates.ValidFrom
	}
	if updates.ValidUntil != nil {
		current.ValidUntil = *updates.ValidUntil
	}
	if updates.TargetType != nil {
		current.TargetType = *updates.TargetType
	}
	if updates.TargetValue != nil {
		current.TargetValue = *updates.TargetValue
	}
	if updates.FarmerID != nil {
		current.FarmerID = *updates.FarmerID
	}
	if updates.Active != nil {
		current.Active = *updates.Active
	}
	return current
}
