package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/aarluxe/pos-cart/api/responses"
	"github.com/aarluxe/pos-cart/pkg/config"
	pkgerrors "github.com/aarluxe/pos-cart/pkg/errors"
	"github.com/aarluxe/pos-cart/pkg/logger"
)

const readyCheckTimeout = 2 * time.Second

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PosCart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency. Nil entries are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PosCart-Env", cfg.App.Env)

		names := make([]string, 0, len(deps))
		for name, dep := range deps {
			if dep != nil {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		checks := make(map[string]string, len(names))
		var failed []string
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			err := deps[name].Ping(ctx)
			cancel()
			if err != nil {
				checks[name] = "down"
				failed = append(failed, name)
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "health.ready", err)
				}
				continue
			}
			checks[name] = "up"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").
				WithDetails(map[string]any{"failed": failed}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
