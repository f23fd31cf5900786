package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrisync/agrisync-engine/api/responses"
	"github.com/agrisync/agrisync-engine/api/validators"
	"github.com/agrisync/agrisync-engine/internal/catalog"
	"github.com/agrisync/agrisync-engine/internal/suggestions"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/logger"
)

// The UI fetches the catalog from the backend and posts it along with each
// suggestion request; the engine never talks to the backend itself.
type suggestionsPayload struct {
	Products []productPayload `json:"products" validate:"required,dive"`
	Location string           `json:"location"`
}

type similarPayload struct {
	Products  []productPayload `json:"products" validate:"required,dive"`
	ProductID string           `json:"product_id" validate:"required"`
}

const defaultSuggestionLimit = 8

// TrackProductView records a view for the history-driven strips.
func TrackProductView(eng suggestions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion engine unavailable"))
			return
		}

		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		if productID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		eng.TrackView(ctx, productID)
		responses.WriteSuccess(w, map[string]bool{"tracked": true})
	}
}

// LastViewedProducts joins the view history against the posted catalog.
func LastViewedProducts(eng suggestions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion engine unavailable"))
			return
		}

		var payload suggestionsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snapshot := catalog.NewSnapshot(toProducts(payload.Products))
		responses.WriteSuccess(w, eng.LastViewed(snapshot))
	}
}

// RecommendedProducts returns purchasable products, randomly ordered unless
// a location hint is supplied.
func RecommendedProducts(eng suggestions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion engine unavailable"))
			return
		}

		limit, err := validators.QueryLimit(r, defaultSuggestionLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload suggestionsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, eng.Recommended(toProducts(payload.Products), payload.Location, limit))
	}
}

// SimilarProducts returns products sharing the farmer or category with the
// referenced product.
func SimilarProducts(eng suggestions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion engine unavailable"))
			return
		}

		limit, err := validators.QueryLimit(r, defaultSuggestionLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload similarPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		products := toProducts(payload.Products)
		snapshot := catalog.NewSnapshot(products)
		product, ok := snapshot.Lookup(payload.ProductID)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not in posted catalog"))
			return
		}

		responses.WriteSuccess(w, eng.Similar(products, product, limit))
	}
}

// SpecialOffers prefers organic products, falling back to the newest overall.
func SpecialOffers(eng suggestions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion engine unavailable"))
			return
		}

		limit, err := validators.QueryLimit(r, defaultSuggestionLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload suggestionsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, eng.SpecialOffers(toProducts(payload.Products), limit))
	}
}

// TrendingProducts returns the newest purchasable products.
func TrendingProducts(eng suggestions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion engine unavailable"))
			return
		}

		limit, err := validators.QueryLimit(r, defaultSuggestionLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload suggestionsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, eng.Trending(toProducts(payload.Products), limit))
	}
}

// ClearViewHistory empties the view-history log.
func ClearViewHistory(eng suggestions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "suggestion engine unavailable"))
			return
		}

		eng.ClearHistory(ctx)
		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}
