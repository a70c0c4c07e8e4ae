package controllers

import (
	"context"
	"net/http"

	"github.com/sarana-io/lending-backend/api/responses"
	"github.com/sarana-io/lending-backend/pkg/config"
)

// Pinger is the readiness probe surface of a datasource client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live", "env": cfg.App.Env})
	}
}

// HealthReady reports readiness based on the datasources the API depends on.
func HealthReady(cfg *config.Config, db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps := map[string]string{}
		healthy := true

		if db != nil {
			deps["postgres"] = "ok"
			if err := db.Ping(r.Context()); err != nil {
				deps["postgres"] = err.Error()
				healthy = false
			}
		}
		if cache != nil {
			deps["redis"] = "ok"
			if err := cache.Ping(r.Context()); err != nil {
				deps["redis"] = err.Error()
				healthy = false
			}
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status":       state,
			"env":          cfg.App.Env,
			"dependencies": deps,
		})
	}
}
