package controllers

import (
	"context"
	"net/http"

	"github.com/agrisync/agrisync-engine/api/responses"
	"github.com/agrisync/agrisync-engine/pkg/config"
	pkgerrors "github.com/agrisync/agrisync-engine/pkg/errors"
	"github.com/agrisync/agrisync-engine/pkg/logger"
)

// Pinger is implemented by storage backends that hold a live connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AgriSync-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the storage backend when it exposes a connection check.
// In-memory and file backends pass a nil pinger and are always ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, storage Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AgriSync-Env", cfg.App.Env)
		if storage != nil {
			if err := storage.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
