package controllers

import (
	"net/http"

	"github.com/agrisync/agrisync-engine/api/responses"
	"github.com/agrisync/agrisync-engine/api/validators"
	"github.com/agrisync/agrisync-engine/internal/preferences"
	"github.com/agrisync/agrisync-engine/pkg/enums"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/logger"
)

type categoryPayload struct {
	Category string `json:"category" validate:"required"`
}

type sortOrderPayload struct {
	SortOrder string `json:"sort_order" validate:"required"`
}

type organicPayload struct {
	Organic bool `json:"organic"`
}

// PreferencesFetch returns the record; unset fields are omitted.
func PreferencesFetch(store preferences.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preference store unavailable"))
			return
		}
		responses.WriteSuccess(w, store.Get())
	}
}

// PreferencesUpdateCategory stores the last category filter.
func PreferencesUpdateCategory(store preferences.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preference store unavailable"))
			return
		}

		var payload categoryPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		category, err := enums.ParseProductCategory(payload.Category)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		store.UpdateCategory(ctx, category)
		responses.WriteSuccess(w, store.Get())
	}
}

// PreferencesUpdateSortOrder stores the last sort order.
func PreferencesUpdateSortOrder(store preferences.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preference store unavailable"))
			return
		}

		var payload sortOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := enums.ParseSortOrder(payload.SortOrder)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort order"))
			return
		}

		store.UpdateSortOrder(ctx, order)
		responses.WriteSuccess(w, store.Get())
	}
}

// PreferencesUpdateOrganic stores the organic-only toggle.
func PreferencesUpdateOrganic(store preferences.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preference store unavailable"))
			return
		}

		var payload organicPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		store.UpdateOrganicPreference(ctx, payload.Organic)
		responses.WriteSuccess(w, store.Get())
	}
}

// PreferencesReset clears the record entirely.
func PreferencesReset(store preferences.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if store == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preference store unavailable"))
			return
		}

		store.Reset(ctx)
		responses.WriteSuccess(w, store.Get())
	}
}
