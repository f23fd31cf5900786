package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrisync/agrisync-engine/api/responses"
	"github.com/agrisync/agrisync-engine/api/validators"
	"github.com/agrisync/agrisync-engine/internal/restrictions"
	"github.com/agrisync/agrisync-engine/pkg/enums"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/logger"
)

type createRestrictionPayload struct {
	Type      string `json:"type" validate:"required"`
	TargetID  string `json:"target_id" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
	Active    bool   `json:"active"`
	CreatedBy string `json:"created_by"`
}

type updateRestrictionPayload struct {
	Type      *string `json:"type"`
	TargetID  *string `json:"target_id"`
	Reason    *string `json:"reason"`
	Active    *bool   `json:"active"`
	CreatedBy *string `json:"created_by"`
}

// AdminRestrictionList returns the rule collection, optionally filtered with
// ?status=active.
func AdminRestrictionList(eng restrictions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restriction engine unavailable"))
			return
		}

		switch strings.TrimSpace(r.URL.Query().Get("status")) {
		case "":
			responses.WriteSuccess(w, eng.List())
		case "active":
			responses.WriteSuccess(w, eng.Active())
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "status must be active"))
		}
	}
}

// AdminRestrictionCreate stores a new rule.
func AdminRestrictionCreate(eng restrictions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restriction engine unavailable"))
			return
		}

		var payload createRestrictionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		restrictionType, err := enums.ParseRestrictionType(payload.Type)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid restriction type"))
			return
		}

		created := eng.Create(ctx, restrictions.CreateInput{
			Type:      restrictionType,
			TargetID:  payload.TargetID,
			Reason:    payload.Reason,
			Active:    payload.Active,
			CreatedBy: payload.CreatedBy,
		})
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AdminRestrictionUpdate shallow-merges the posted fields into an existing
// rule.
func AdminRestrictionUpdate(eng restrictions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restriction engine unavailable"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "restrictionId"))
		if id == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "restriction id is required"))
			return
		}

		var payload updateRestrictionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		updates := restrictions.UpdateInput{
			TargetID:  payload.TargetID,
			Reason:    payload.Reason,
			Active:    payload.Active,
			CreatedBy: payload.CreatedBy,
		}
		if payload.Type != nil {
			restrictionType, err := enums.ParseRestrictionType(*payload.Type)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid restriction type"))
				return
			}
			updates.Type = &restrictionType
		}

		updated, err := eng.Update(ctx, id, updates)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminRestrictionDelete removes a rule; deleting an unknown id succeeds.
func AdminRestrictionDelete(eng restrictions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restriction engine unavailable"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "restrictionId"))
		if id == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "restriction id is required"))
			return
		}

		eng.Delete(ctx, id)
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// RestrictionCheckProduct evaluates the posted product against the active
// rules, product-specific rules first.
func RestrictionCheckProduct(eng restrictions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restriction engine unavailable"))
			return
		}

		var payload productPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, eng.CheckProduct(payload.toProduct()))
	}
}

// RestrictionCheckBuyer matches active buyer rules by exact id.
func RestrictionCheckBuyer(eng restrictions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restriction engine unavailable"))
			return
		}

		buyerID := strings.TrimSpace(chi.URLParam(r, "buyerId"))
		if buyerID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required"))
			return
		}

		if logg != nil {
			ctx = logg.WithBuyerID(ctx, buyerID)
			logg.Info(ctx, "restriction.check_buyer")
		}
		responses.WriteSuccess(w, eng.CheckBuyer(buyerID))
	}
}

// RestrictionCheckRegion matches active region rules case-insensitively.
func RestrictionCheckRegion(eng restrictions.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if eng == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restriction engine unavailable"))
			return
		}

		region := strings.TrimSpace(r.URL.Query().Get("region"))
		if region == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "region is required"))
			return
		}

		responses.WriteSuccess(w, eng.CheckRegion(region))
	}
}
