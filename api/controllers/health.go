package controllers

import (
	"context"
	"net/http"

	"github.com/avelinehq/cartside/api/responses"
	"github.com/avelinehq/cartside/pkg/config"
	pkgerrors "github.com/avelinehq/cartside/pkg/errors"
	"github.com/avelinehq/cartside/pkg/logger"
)

// Pinger is anything with a connection to verify at readiness time.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NamedPinger pairs a dependency with its name for the readiness report.
type NamedPinger struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartside-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the wired backends. Any failing dependency flips the
// endpoint to 503 with the failing names listed.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...NamedPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cartside-Env", cfg.App.Env)

		failing := map[string]string{}
		for _, dep := range deps {
			if dep.Pinger == nil {
				continue
			}
			if err := dep.Pinger.Ping(r.Context()); err != nil {
				failing[dep.Name] = err.Error()
			}
		}

		if len(failing) > 0 {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(failing)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
