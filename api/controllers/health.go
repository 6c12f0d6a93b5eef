package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nishacrest/Beta-test-sub001/api/responses"
	"github.com/nishacrest/Beta-test-sub001/pkg/config"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
)

const (
	envHeader    = "X-Giftcard-Env"
	readyTimeout = 3 * time.Second
)

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names a dependency probed by /health/ready.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every dependency concurrently. Nil pingers are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			status = map[string]string{}
		)
		g, gctx := errgroup.WithContext(ctx)
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			check := check
			g.Go(func() error {
				err := check.Pinger.Ping(gctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					status[check.Name] = "down"
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" unavailable").
						WithDetails(map[string]any{"dependency": check.Name})
				}
				status[check.Name] = "ok"
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
