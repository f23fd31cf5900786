package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrisync/agrisync-engine/api/responses"
	"github.com/agrisync/agrisync-engine/api/validators"
	"github.com/agrisync/agrisync-engine/internal/discounts"
	"github.com/agrisync/agrisync-engine/pkg/enums"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/logger"
	"github.com/shopspring/decimal"
)

// Validity dates are stored as the admin sends them. An inverted window
// simply never matches; there is no cross-field check here.
type createDiscountPayload struct {
	Name              string           `json:"name" validate:"required"`
	Type              string           `json:"type" validate:"required"`
	Value             decimal.Decimal  `json:"value"`
	IsPercentage      bool             `json:"is_percentage"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	ValidFrom         time.Time        `json:"valid_from" validate:"required"`
	ValidUntil        time.Time        `json:"valid_until" validate:"required"`
	TargetType        string           `json:"target_type" validate:"required"`
	TargetValue       string           `json:"target_value"`
	FarmerID          string           `json:"farmer_id"`
	Active            bool             `json:"active"`
}

type updateDiscountPayload struct {
	Name              *string          `json:"name"`
	Type              *string          `json:"type"`
	Value             *decimal.Decimal `json:"value"`
	IsPercentage      *bool            `json:"is_percentage"`
	MinOrderAmount    *decimal.Decimal `json:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	ValidFrom         *time.Time       `json:"valid_from"`
	ValidUntil        *time.Time       `json:"valid_until"`
	TargetType        *string          `json:"target_type"`
	TargetValue       *string          `json:"target_value"`
	FarmerID          *string          `json:"farmer_id"`
	Active            *bool            `json:"active"`
}

type calculateDiscountPayload struct {
	OrderAmount decimal.Decimal `json:"order_amount"`
	Items       []calculateItem `json:"items" validate:"dive"`
}

type calculateItem struct {
	Product  productPayload `json:"product" validate:"required"`
	Quantity int            `json:"quantity" validate:"required,gt=0"`
}

// AdminDiscountList returns the rule collection, optionally filtered with
// ?status=active or ?status=expired.
func AdminDiscountList(eng discounts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount engine unavailable"))
			return
		}

		switch strings.TrimSpace(r.URL.Query().Get("status")) {
		case "":
			responses.WriteSuccess(w, eng.List())
		case "active":
			responses.WriteSuccess(w, eng.Active())
		case "expired":
			responses.WriteSuccess(w, eng.Expired())
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "status must be active or expired"))
		}
	}
}

// AdminDiscountCreate stores a new rule.
func AdminDiscountCreate(eng discounts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount engine unavailable"))
			return
		}

		var payload createDiscountPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(payload.Type)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
			return
		}
		targetType, err := enums.ParseDiscountTarget(payload.TargetType)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target type"))
			return
		}

		created := eng.Create(ctx, discounts.CreateInput{
			Name:              payload.Name,
			Type:              discountType,
			Value:             payload.Value,
			IsPercentage:      payload.IsPercentage,
			MinOrderAmount:    payload.MinOrderAmount,
			MaxDiscountAmount: payload.MaxDiscountAmount,
			ValidFrom:         payload.ValidFrom,
			ValidUntil:        payload.ValidUntil,
			TargetType:        targetType,
			TargetValue:       payload.TargetValue,
			FarmerID:          payload.FarmerID,
			Active:            payload.Active,
		})
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AdminDiscountUpdate shallow-merges the posted fields into an existing rule.
func AdminDiscountUpdate(eng discounts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount engine unavailable"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "discountId"))
		if id == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "discount id is required"))
			return
		}

		var payload updateDiscountPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		updates := discounts.UpdateInput{
			Name:              payload.Name,
			Value:             payload.Value,
			IsPercentage:      payload.IsPercentage,
			MinOrderAmount:    payload.MinOrderAmount,
			MaxDiscountAmount: payload.MaxDiscountAmount,
			ValidFrom:         payload.ValidFrom,
			ValidUntil:        payload.ValidUntil,
			TargetValue:       payload.TargetValue,
			FarmerID:          payload.FarmerID,
			Active:            payload.Active,
		}
		if payload.Type != nil {
			discountType, err := enums.ParseDiscountType(*payload.Type)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
				return
			}
			updates.Type = &discountType
		}
		if payload.TargetType != nil {
			targetType, err := enums.ParseDiscountTarget(*payload.TargetType)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target type"))
				return
			}
			updates.TargetType = &targetType
		}

		updated, err := eng.Update(ctx, id, updates)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminDiscountDelete removes a rule; deleting an unknown id succeeds.
func AdminDiscountDelete(eng discounts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount engine unavailable"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "discountId"))
		if id == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "discount id is required"))
			return
		}

		eng.Delete(ctx, id)
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// DiscountForProduct returns the first active discount targeting the posted
// product, if any.
func DiscountForProduct(eng discounts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount engine unavailable"))
			return
		}

		var payload productPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if discount, ok := eng.ForProduct(payload.toProduct()); ok {
			responses.WriteSuccess(w, discount)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// DiscountCalculate returns the single best-applicable discount for the
// posted order, or null when none applies.
func DiscountCalculate(eng discounts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount engine unavailable"))
			return
		}

		var payload calculateDiscountPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items := make([]discounts.LineItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, discounts.LineItem{Product: item.Product.toProduct(), Quantity: item.Quantity})
		}

		if result, ok := eng.Calculate(payload.OrderAmount, items); ok {
			responses.WriteSuccess(w, result)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
