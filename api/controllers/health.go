package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/bottlespin/bottlespin-backend/api/responses"
	"github.com/bottlespin/bottlespin-backend/pkg/config"
	pkgerrors "github.com/bottlespin/bottlespin-backend/pkg/errors"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

const readyCheckTimeout = 2 * time.Second

const envHeader = "X-BottleSpin-Env"

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing stores and reports per-dependency status.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := []string{}

		for name, dep := range map[string]pinger{"postgres": db, "redis": redis} {
			if dep == nil {
				checks[name] = "not configured"
				failed = append(failed, name)
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "unreachable"
				failed = append(failed, name)
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
