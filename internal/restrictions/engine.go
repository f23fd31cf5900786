// Package restrictions owns the marketplace restriction rules and answers
// whether a product, buyer, or region is blocked and why.
package restrictions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
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
)

// StorageKey is the blob the restriction collection persists to.
const StorageKey = "agrisync_restrictions"

// Restriction blocks a product, category, seller, buyer, or region.
type Restriction struct {
	ID        string                `json:"id"`
	Type      enums.RestrictionType `json:"type"`
	TargetID  string                `json:"target_id"`
	Reason    string                `json:"reason"`
	Active    bool                  `json:"active"`
	CreatedAt time.Time             `json:"created_at"`
	CreatedBy string                `json:"created_by,omitempty"`
}

// Check is a restriction verdict.
type Check struct {
	IsRestricted bool   `json:"is_restricted"`
	Reason       string `json:"reason,omitempty"`
}

// CreateInput carries every Restriction field except the generated id and
// creation timestamp.
type CreateInput struct {
	Type      enums.RestrictionType
	TargetID  string
	Reason    string
	Active    bool
	CreatedBy string
}

// UpdateInput shallow-merges into an existing Restriction; nil fields are
// left untouched.
type UpdateInput struct {
	Type      *enums.RestrictionType
	TargetID  *string
	Reason    *string
	Active    *bool
	CreatedBy *string
}

// Engine exposes restriction rule management and verdict checks.
type Engine interface {
	Create(ctx context.Context, input CreateInput) Restriction
	Update(ctx context.Context, id string, updates UpdateInput) (Restriction, error)
	Delete(ctx context.Context, id string)
	List() []Restriction
	Active() []Restriction
	CheckProduct(product catalog.Product) Check
	CheckBuyer(buyerID string) Check
	CheckRegion(region string) Check
}

// Params groups dependencies for the restriction engine.
type Params struct {
	Store   kv.Store
	Logger  *logger.Logger
	Clock   clock.Clock
	Metrics *metrics.EngineMetrics
}

type engine struct {
	mu           sync.Mutex
	restrictions []Restriction

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
	e.restrictions = e.load(ctx)
	return e, nil
}

func (e *engine) load(ctx context.Context) []Restriction {
	raw, err := e.store.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			e.logg.Warn(e.logg.WithStoreKey(ctx, StorageKey), "restriction collection unreadable, starting empty")
		}
		return nil
	}
	var loaded []Restriction
	if err := json.Unmarshal(raw, &loaded); err != nil {
		e.logg.Warn(e.logg.WithStoreKey(ctx, StorageKey), "restriction collection malformed, starting empty")
		return nil
	}
	return loaded
}

func (e *engine) persist(ctx context.Context) {
	raw, err := json.Marshal(e.restrictions)
	if err == nil {
		err = e.store.Set(ctx, StorageKey, raw)
	}
	if err != nil {
		e.logg.Error(e.logg.WithStoreKey(ctx, StorageKey), "failed to save restrictions", err)
		e.metrics.IncPersistFailure(StorageKey)
	}
}

func (e *engine) Create(ctx context.Context, input CreateInput) Restriction {
	e.mu.Lock()
	defer e.mu.Unlock()

	restriction := Restriction{
		ID:        "restriction_" + uuid.NewString(),
		Type:      input.Type,
		TargetID:  input.TargetID,
		Reason:    input.Reason,
		Active:    input.Active,
		CreatedAt: e.clock.Now(),
		CreatedBy: input.CreatedBy,
	}
	e.restrictions = append(e.restrictions, restriction)
	e.persist(ctx)
	return restriction
}

func (e *engine) Update(ctx context.Context, id string, updates UpdateInput) (Restriction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.restrictions {
		if e.restrictions[i].ID != id {
			continue
		}
		merged := mergeRestriction(e.restrictions[i], updates)
		e.restrictions[i] = merged
		e.persist(ctx)
		return merged, nil
	}
	return Restriction{}, pkgerrors.New(pkgerrors.CodeNotFound, "restriction not found")
}

func (e *engine) Delete(ctx context.Context, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.restrictions[:0]
	for _, restriction := range e.restrictions {
		if restriction.ID != id {
			kept = append(kept, restriction)
		}
	}
	if len(kept) == len(e.restrictions) {
		return
	}
	e.restrictions = kept
	e.persist(ctx)
}

func (e *engine) List() []Restriction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Restriction, len(e.restrictions))
	copy(out, e.restrictions)
	return out
}

func (e *engine) Active() []Restriction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked()
}

func (e *engine) activeLocked() []Restriction {
	var active []Restriction
	for _, restriction := range e.restrictions {
		if restriction.Active {
			active = append(active, restriction)
		}
	}
	return active
}

// CheckProduct evaluates product-id, then category, then seller restrictions.
// The order is deliberate: a product-specific reason is reported even when a
// category-wide or seller-wide rule also applies.
func (e *engine) CheckProduct(product catalog.Product) Check {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.activeLocked()
	if hit, ok := firstMatch(active, enums.RestrictionTypeProduct, product.ID); ok {
		return Check{IsRestricted: true, Reason: hit.Reason}
	}
	if hit, ok := firstMatch(active, enums.RestrictionTypeCategory, string(product.Category)); ok {
		return Check{IsRestricted: true, Reason: hit.Reason}
	}
	if hit, ok := firstMatch(active, enums.RestrictionTypeSeller, product.FarmerID); ok {
		return Check{IsRestricted: true, Reason: hit.Reason}
	}
	return Check{}
}

// CheckBuyer matches active buyer restrictions by exact id.
func (e *engine) CheckBuyer(buyerID string) Check {
	e.mu.Lock()
	defer e.mu.Unlock()

	if hit, ok := firstMatch(e.activeLocked(), enums.RestrictionTypeBuyer, buyerID); ok {
		return Check{IsRestricted: true, Reason: hit.Reason}
	}
	return Check{}
}

// CheckRegion matches active region restrictions case-insensitively.
func (e *engine) CheckRegion(region string) Check {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, restriction := range e.activeLocked() {
		if restriction.Type != enums.RestrictionTypeRegion {
			continue
		}
		if strings.EqualFold(restriction.TargetID, region) {
			return Check{IsRestricted: true, Reason: restriction.Reason}
		}
	}
	return Check{}
}

func firstMatch(active []Restriction, kind enums.RestrictionType, targetID string) (Restriction, bool) {
	for _, restriction := range active {
		if restriction.Type == kind && restriction.TargetID == targetID {
			return restriction, true
		}
	}
	return Restriction{}, false
}

func mergeRestriction(current Restriction, updates UpdateInput) Restriction {
	if updates.Type != nil {
		current.Type = *updates.Type
	}
	if updates.TargetID != nil {
		current.TargetID = *updates.TargetID
	}
	if updates.Reason != nil {
		current.Reason = *updates.Reason
	}
	if updates.Active != nil {
		current.Active = *updates.Active
	}
	if updates.CreatedBy != nil {
		current.CreatedBy = *updates.CreatedBy
	}
	return current
}
