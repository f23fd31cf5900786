// Package preferences persists the buyer's browsing settings: the last
// category filter, the last sort order, and the organic-only toggle.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/agrisync/agrisync-engine/pkg/enums"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/kv"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/agrisync/agrisync-engine/pkg/metrics"
)

// StorageKey is the blob the preference record persists to.
const StorageKey = "agrisync_preferences"

// Preferences is a single mutable record. Nil fields have never been set and
// the UI falls back to its own defaults for them.
type Preferences struct {
	LastCategory      *enums.ProductCategory `json:"last_category,omitempty"`
	LastSortOrder     *enums.SortOrder       `json:"last_sort_order,omitempty"`
	OrganicPreference *bool                  `json:"organic_preference,omitempty"`
}

// Store is the preference surface the UI drives. Setters accept enumerated
// values as-is; anything beyond membership in the enum is not validated.
type Store interface {
	Get() Preferences
	UpdateCategory(ctx context.Context, category enums.ProductCategory)
	UpdateSortOrder(ctx context.Context, order enums.SortOrder)
	UpdateOrganicPreference(ctx context.Context, organic bool)
	Reset(ctx context.Context)
}

// Params groups dependencies for the preference store.
type Params struct {
	Store   kv.Store
	Logger  *logger.Logger
	Metrics *metrics.EngineMetrics
}

type store struct {
	mu    sync.Mutex
	prefs Preferences

	kv      kv.Store
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
}

// NewStore loads the persisted record. A malformed or missing blob degrades
// to an all-unset record.
func NewStore(ctx context.Context, params Params) (Store, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kv store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	s := &store{
		kv:      params.Store,
		logg:    params.Logger,
		metrics: params.Metrics,
	}
	s.prefs = s.load(ctx)
	return s, nil
}

func (s *store) load(ctx context.Context) Preferences {
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logg.Warn(s.logg.WithStoreKey(ctx, StorageKey), "preferences unreadable, starting unset")
		}
		return Preferences{}
	}
	var loaded Preferences
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.logg.Warn(s.logg.WithStoreKey(ctx, StorageKey), "preferences malformed, starting unset")
		return Preferences{}
	}
	return loaded
}

func (s *store) persist(ctx context.Context) {
	raw, err := json.Marshal(s.prefs)
	if err == nil {
		err = s.kv.Set(ctx, StorageKey, raw)
	}
	if err != nil {
		s.logg.Error(s.logg.WithStoreKey(ctx, StorageKey), "failed to save preferences", err)
		s.metrics.IncPersistFailure(StorageKey)
	}
}

func (s *store) Get() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *store) UpdateCategory(ctx context.Context, category enums.ProductCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.LastCategory = &category
	s.persist(ctx)
}

func (s *store) UpdateSortOrder(ctx context.Context, order enums.SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.LastSortOrder = &order
	s.persist(ctx)
}

func (s *store) UpdateOrganicPreference(ctx context.Context, organic bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.OrganicPreference = &organic
	s.persist(ctx)
}

// Reset clears the record and removes the persisted blob.
func (s *store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = Preferences{}
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		s.logg.Error(s.logg.WithStoreKey(ctx, StorageKey), "failed to clear preferences", err)
		s.metrics.IncPersistFailure(StorageKey)
	}
}
