package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agrisync/agrisync-engine/api/controllers"
	"github.com/agrisync/agrisync-engine/api/middleware"
	"github.com/agrisync/agrisync-engine/internal/cart"
	"github.com/agrisync/agrisync-engine/internal/discounts"
	"github.com/agrisync/agrisync-engine/internal/preferences"
	"github.com/agrisync/agrisync-engine/internal/restrictions"
	"github.com/agrisync/agrisync-engine/internal/suggestions"
	"github.com/agrisync/agrisync-engine/pkg/config"
	"github.com/agrisync/agrisync-engine/pkg/logger"
)

// Engines bundles the wired engine instances the router serves.
type Engines struct {
	Cart         cart.Store
	Discounts    discounts.Engine
	Restrictions restrictions.Engine
	Suggestions  suggestions.Engine
	Preferences  preferences.Store
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	storage controllers.Pinger,
	engines Engines,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, storage))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(engines.Cart, logg))
			r.Delete("/", controllers.CartClear(engines.Cart, logg))
			r.Post("/items", controllers.CartAddItem(engines.Cart, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(engines.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(engines.Cart, logg))
		})
		r.Post("/checkout", controllers.Checkout(engines.Cart, logg))

		r.Route("/discounts", func(r chi.Router) {
			r.Post("/for-product", controllers.DiscountForProduct(engines.Discounts, logg))
			r.Post("/calculate", controllers.DiscountCalculate(engines.Discounts, logg))
		})

		r.Route("/restrictions/check", func(r chi.Router) {
			r.Post("/product", controllers.RestrictionCheckProduct(engines.Restrictions, logg))
			r.Get("/buyer/{buyerId}", controllers.RestrictionCheckBuyer(engines.Restrictions, logg))
			r.Get("/region", controllers.RestrictionCheckRegion(engines.Restrictions, logg))
		})

		r.Post("/products/{productId}/view", controllers.TrackProductView(engines.Suggestions, logg))
		r.Route("/suggestions", func(r chi.Router) {
			r.Post("/last-viewed", controllers.LastViewedProducts(engines.Suggestions, logg))
			r.Post("/recommended", controllers.RecommendedProducts(engines.Suggestions, logg))
			r.Post("/similar", controllers.SimilarProducts(engines.Suggestions, logg))
			r.Post("/special-offers", controllers.SpecialOffers(engines.Suggestions, logg))
			r.Post("/trending", controllers.TrendingProducts(engines.Suggestions, logg))
			r.Delete("/history", controllers.ClearViewHistory(engines.Suggestions, logg))
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", controllers.PreferencesFetch(engines.Preferences, logg))
			r.Delete("/", controllers.PreferencesReset(engines.Preferences, logg))
			r.Put("/category", controllers.PreferencesUpdateCategory(engines.Preferences, logg))
			r.Put("/sort-order", controllers.PreferencesUpdateSortOrder(engines.Preferences, logg))
			r.Put("/organic", controllers.PreferencesUpdateOrganic(engines.Preferences, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", controllers.AdminDiscountList(engines.Discounts, logg))
			r.Post("/", controllers.AdminDiscountCreate(engines.Discounts, logg))
			r.Patch("/{discountId}", controllers.AdminDiscountUpdate(engines.Discounts, logg))
			r.Delete("/{discountId}", controllers.AdminDiscountDelete(engines.Discounts, logg))
		})
		r.Route("/restrictions", func(r chi.Router) {
			r.Get("/", controllers.AdminRestrictionList(engines.Restrictions, logg))
			r.Post("/", controllers.AdminRestrictionCreate(engines.Restrictions, logg))
			r.Patch("/{restrictionId}", controllers.AdminRestrictionUpdate(engines.Restrictions, logg))
			r.Delete("/{restrictionId}", controllers.AdminRestrictionDelete(engines.Restrictions, logg))
		})
	})

	return r
}
