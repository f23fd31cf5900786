// Package suggestions derives trending, similar, recommended, and
// special-offer product subsets from the supplied catalog plus a small
// persisted view-history log.
package suggestions

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/agrisync/agrisync-engine/internal/catalog"
	"github.com/agrisync/agrisync-engine/pkg/clock"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/kv"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/agrisync/agrisync-engine/pkg/metrics"
)

// StorageKey is the blob the view history persists to.
const StorageKey = "agrisync_last_viewed"

// DefaultHistoryCap bounds how many distinct product views are remembered.
const DefaultHistoryCap = 10

// DefaultRetention is how long a view-history entry survives.
const DefaultRetention = 30 * 24 * time.Hour

// lastViewedDisplayCap bounds the "continue where you left off" strip.
const lastViewedDisplayCap = 4

// ViewEntry records one product view.
type ViewEntry struct {
	ProductID string    `json:"product_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine is the read-side ranking surface for discovery and detail pages.
// Catalog data arrives as an immutable snapshot on every call.
type Engine interface {
	TrackView(ctx context.Context, productID string)
	History() []ViewEntry
	LastViewed(snapshot catalog.Snapshot) []catalog.Product
	Recommended(products []catalog.Product, location string, limit int) []catalog.Product
	Similar(products []catalog.Product, product catalog.Product, limit int) []catalog.Product
	SpecialOffers(products []catalog.Product, limit int) []catalog.Product
	Trending(products []catalog.Product, limit int) []catalog.Product
	ClearHistory(ctx context.Context)
	Prune(ctx context.Context) int
}

// Params groups dependencies for the suggestion engine.
type Params struct {
	Store   kv.Store
	Logger  *logger.Logger
	Clock   clock.Clock
	Metrics *metrics.EngineMetrics
	// Rand overrides the shuffle source for deterministic tests.
	Rand *rand.Rand
	// HistoryCap overrides DefaultHistoryCap when positive.
	HistoryCap int
	// Retention overrides DefaultRetention when positive.
	Retention time.Duration
}

type engine struct {
	mu      sync.Mutex
	history []ViewEntry

	store      kv.Store
	logg       *logger.Logger
	clock      clock.Clock
	metrics    *metrics.EngineMetrics
	rand       *rand.Rand
	historyCap int
	retention  time.Duration
}

// NewEngine loads the persisted view history, dropping entries older than
// the retention window. A malformed or missing blob degrades to an empty log.
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
	if params.HistoryCap <= 0 {
		params.HistoryCap = DefaultHistoryCap
	}
	if params.Retention <= 0 {
		params.Retention = DefaultRetention
	}
	if params.Rand == nil {
		params.Rand = rand.New(rand.NewSource(params.Clock.Now().UnixNano()))
	}
	e := &engine{
		store:      params.Store,
		logg:       params.Logger,
		clock:      params.Clock,
		metrics:    params.Metrics,
		rand:       params.Rand,
		historyCap: params.HistoryCap,
		retention:  params.Retention,
	}
	e.history = e.load(ctx)
	return e, nil
}

func (e *engine) load(ctx context.Context) []ViewEntry {
	raw, err := e.store.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			e.logg.Warn(e.logg.WithStoreKey(ctx, StorageKey), "view history unreadable, starting empty")
		}
		return nil
	}
	var loaded []ViewEntry
	if err := json.Unmarshal(raw, &loaded); err != nil {
		e.logg.Warn(e.logg.WithStoreKey(ctx, StorageKey), "view history malformed, starting empty")
		return nil
	}
	kept, evicted := e.splitFresh(loaded)
	e.metrics.AddEvictions(StorageKey, evicted)
	return kept
}

func (e *engine) splitFresh(entries []ViewEntry) ([]ViewEntry, int) {
	cutoff := e.clock.Now().Add(-e.retention)
	var kept []ViewEntry
	for _, entry := range entries {
		if entry.Timestamp.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	return kept, len(entries) - len(kept)
}

func (e *engine) persist(ctx context.Context) {
	raw, err := json.Marshal(e.history)
	if err == nil {
		err = e.store.Set(ctx, StorageKey, raw)
	}
	if err != nil {
		e.logg.Error(e.logg.WithStoreKey(ctx, StorageKey), "failed to save view history", err)
		e.metrics.IncPersistFailure(StorageKey)
	}
}

// TrackView records a product view at the front of the history. Re-viewing a
// product moves its entry forward instead of duplicating it.
func (e *engine) TrackView(ctx context.Context, productID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	updated := make([]ViewEntry, 0, len(e.history)+1)
	updated = append(updated, ViewEntry{ProductID: productID, Timestamp: e.clock.Now()})
	for _, entry := range e.history {
		if entry.ProductID != productID {
			updated = append(updated, entry)
		}
	}
	if len(updated) > e.historyCap {
		updated = updated[:e.historyCap]
	}
	e.history = updated
	e.persist(ctx)
}

func (e *engine) History() []ViewEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ViewEntry, len(e.history))
	copy(out, e.history)
	return out
}

// LastViewed joins the history against the supplied catalog, dropping
// products that no longer exist, most recent first.
func (e *engine) LastViewed(snapshot catalog.Snapshot) []catalog.Product {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []catalog.Product
	for _, entry := range e.history {
		if product, ok := snapshot.Lookup(entry.ProductID); ok {
			out = append(out, product)
			if len(out) == lastViewedDisplayCap {
				break
			}
		}
	}
	return out
}

// Recommended returns purchasable products. Without a location hint the
// order is random by design. The hint is accepted but products carry no
// location to filter on, so a hinted call just truncates the purchasable
// list.
func (e *engine) Recommended(products []catalog.Product, location string, limit int) []catalog.Product {
	if limit <= 0 {
		return nil
	}
	purchasable := inStock(products)
	if location == "" {
		e.mu.Lock()
		e.rand.Shuffle(len(purchasable), func(i, j int) {
			purchasable[i], purchasable[j] = purchasable[j], purchasable[i]
		})
		e.mu.Unlock()
	}
	return truncate(purchasable, limit)
}

// Similar returns purchasable products sharing the farmer or the category,
// same-farmer matches first, deduplicated, the product itself excluded.
func (e *engine) Similar(products []catalog.Product, product catalog.Product, limit int) []catalog.Product {
	if limit <= 0 {
		return nil
	}
	seen := map[string]struct{}{product.ID: {}}
	var combined []catalog.Product
	for _, candidate := range products {
		if !candidate.InStock() || candidate.FarmerID != product.FarmerID {
			continue
		}
		if _, dup := seen[candidate.ID]; dup {
			continue
		}
		seen[candidate.ID] = struct{}{}
		combined = append(combined, candidate)
	}
	for _, candidate := range products {
		if !candidate.InStock() || candidate.Category != product.Category {
			continue
		}
		if _, dup := seen[candidate.ID]; dup {
			continue
		}
		seen[candidate.ID] = struct{}{}
		combined = append(combined, candidate)
	}
	return truncate(combined, limit)
}

// SpecialOffers prefers organic purchasable products. When fewer than limit
// organic products exist the partial organic result is discarded entirely in
// favor of the newest purchasable products overall.
func (e *engine) SpecialOffers(products []catalog.Product, limit int) []catalog.Product {
	if limit <= 0 {
		return nil
	}
	var organic []catalog.Product
	for _, candidate := range products {
		if candidate.Organic && candidate.InStock() {
			organic = append(organic, candidate)
		}
	}
	if len(organic) >= limit {
		return organic[:limit]
	}
	return newestFirst(inStock(products), limit)
}

// Trending is the newest purchasable products.
func (e *engine) Trending(products []catalog.Product, limit int) []catalog.Product {
	if limit <= 0 {
		return nil
	}
	return newestFirst(inStock(products), limit)
}

// ClearHistory empties the log and removes the persisted blob.
func (e *engine) ClearHistory(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = nil
	if err := e.store.Delete(ctx, StorageKey); err != nil {
		e.logg.Error(e.logg.WithStoreKey(ctx, StorageKey), "failed to clear view history", err)
		e.metrics.IncPersistFailure(StorageKey)
	}
}

// Prune re-applies the retention window to the live history and persists the
// result when anything was dropped. It returns the number of dropped entries.
func (e *engine) Prune(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept, evicted := e.splitFresh(e.history)
	if evicted == 0 {
		return 0
	}
	e.history = kept
	e.metrics.AddEvictions(StorageKey, evicted)
	e.persist(ctx)
	return evicted
}

func inStock(products []catalog.Product) []catalog.Product {
	var out []catalog.Product
	for _, product := range products {
		if product.InStock() {
			out = append(out, product)
		}
	}
	return out
}

func newestFirst(products []catalog.Product, limit int) []catalog.Product {
	sorted := make([]catalog.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return truncate(sorted, limit)
}

func truncate(products []catalog.Product, limit int) []catalog.Product {
	if len(products) > limit {
		return products[:limit]
	}
	return products
}
