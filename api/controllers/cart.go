package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrisync/agrisync-engine/api/responses"
	"github.com/agrisync/agrisync-engine/api/validators"
	"github.com/agrisync/agrisync-engine/internal/cart"
	"github.com/agrisync/agrisync-engine/internal/checkout"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/shopspring/decimal"
)

type addCartItemPayload struct {
	Product  productPayload `json:"product" validate:"required"`
	Quantity int            `json:"quantity" validate:"required,gt=0"`
}

type updateCartItemPayload struct {
	Quantity int `json:"quantity"`
}

type cartView struct {
	Items      []cart.Item           `json:"items"`
	Subtotal   decimal.Decimal       `json:"subtotal"`
	TotalItems int                   `json:"total_items"`
	Discount   *cart.AppliedDiscount `json:"discount,omitempty"`
	FinalTotal decimal.Decimal       `json:"final_total"`
}

func cartViewOf(store cart.Store) cartView {
	view := cartView{
		Items:      store.Items(),
		Subtotal:   store.Subtotal(),
		TotalItems: store.TotalItems(),
		FinalTotal: store.FinalTotal(),
	}
	if applied, ok := store.Discount(); ok {
		view.Discount = &applied
	}
	return view
}

// CartFetch returns the cart with its derived totals.
func CartFetch(store cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}
		responses.WriteSuccess(w, cartViewOf(store))
	}
}

// CartAddItem merges the posted product into the cart.
func CartAddItem(store cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		var payload addCartItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		store.AddItem(ctx, payload.Product.toProduct(), payload.Quantity)
		responses.WriteSuccessStatus(w, http.StatusCreated, cartViewOf(store))
	}
}

// CartUpdateItem sets the line quantity to an absolute value; zero or less
// removes the line.
func CartUpdateItem(store cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		if productID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		var payload updateCartItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		store.UpdateQuantity(ctx, productID, payload.Quantity)
		responses.WriteSuccess(w, cartViewOf(store))
	}
}

// CartRemoveItem deletes a line; removing an absent product succeeds.
func CartRemoveItem(store cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		if productID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		store.RemoveItem(ctx, productID)
		responses.WriteSuccess(w, cartViewOf(store))
	}
}

// CartClear empties the cart.
func CartClear(store cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		store.Clear(ctx)
		responses.WriteSuccess(w, cartViewOf(store))
	}
}

// Checkout groups the current cart into per-farmer order drafts. The cart is
// left untouched; clearing it is the UI's call after the orders are placed.
func Checkout(store cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart store unavailable"))
			return
		}

		items := store.Items()
		if len(items) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty"))
			return
		}

		drafts := checkout.BuildDrafts(items)
		view := cartViewOf(store)
		responses.WriteSuccess(w, map[string]any{
			"drafts":      drafts,
			"subtotal":    view.Subtotal,
			"discount":    view.Discount,
			"final_total": view.FinalTotal,
		})
	}
}
