package controllers

import (
	"net/http"

	"github.com/angelmondragon/sheetsync-backend/api/responses"
	"github.com/angelmondragon/sheetsync-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/sheetsync-backend/pkg/errors"
	"github.com/angelmondragon/sheetsync-backend/pkg/logger"
	"github.com/angelmondragon/sheetsync-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SheetSync-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, pinger redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SheetSync-Env", cfg.App.Env)
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
