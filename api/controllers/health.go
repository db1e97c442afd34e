package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/pixelvault/pixelvault-backend/api/responses"
	"github.com/pixelvault/pixelvault-backend/pkg/config"
	pkgerrors "github.com/pixelvault/pixelvault-backend/pkg/errors"
	"github.com/pixelvault/pixelvault-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is the readiness surface a dependency must expose.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PixelVault-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing stores before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PixelVault-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "unreachable"
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
					WithDetails(map[string]any{"checks": checks})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			checks[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
