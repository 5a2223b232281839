package controllers

import (
	"context"
	"net/http"

	"github.com/classpulse/classpulse-backend/api/responses"
	"github.com/classpulse/classpulse-backend/pkg/config"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

// DependencyCheck names one readiness probe target.
type DependencyCheck struct {
	Name   string
	Pinger pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ClassPulse-Env", cfg.App.Env)
		responses.WriteSuccess(w, "live", map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency and reports per-check status.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...DependencyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ClassPulse-Env", cfg.App.Env)

		statuses := map[string]string{}
		healthy := true
		for _, check := range checks {
			if check.Pinger == nil {
				statuses[check.Name] = "skipped"
				continue
			}
			if err := check.Pinger.Ping(r.Context()); err != nil {
				healthy = false
				statuses[check.Name] = "unavailable"
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed: "+check.Name, err)
				}
				continue
			}
			statuses[check.Name] = "ok"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "one or more dependencies unavailable").
				WithDetails(statuses)
			responses.WriteError(r.Context(), logg, w, r, err)
			return
		}
		responses.WriteSuccess(w, "ready", statuses)
	}
}
