package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nishacrest/Beta-test-sub001/api/controllers"
	"github.com/nishacrest/Beta-test-sub001/api/middleware"
	"github.com/nishacrest/Beta-test-sub001/internal/invoices"
	"github.com/nishacrest/Beta-test-sub001/internal/purchases"
	"github.com/nishacrest/Beta-test-sub001/internal/redemptions"
	"github.com/nishacrest/Beta-test-sub001/pkg/config"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/metrics"
	pkgredis "github.com/nishacrest/Beta-test-sub001/pkg/redis"
)

// RedisStore is the subset of the redis client used by request middleware.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators mounted on the router. Nil entries leave
// their routes answering with an internal error and skip their readiness probe.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       RedisStore
	Storage     controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	Invoices    invoices.Service
	Redemptions redemptions.Service
	Purchases   purchases.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
	)

	checks := []controllers.ReadinessCheck{{Name: "db", Pinger: deps.DB}, {Name: "storage", Pinger: deps.Storage}}
	if deps.Redis != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: deps.Redis})
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks...))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	writePolicy := middleware.RateLimitPolicy{
		Name:   "admin_write",
		Window: cfg.HTTP.RateLimitWindow,
		Limit:  cfg.HTTP.WriteRateLimit,
	}

	r.Route("/api/admin/v1", func(r chi.Router) {
		if deps.Redis != nil {
			r.Use(middleware.RateLimit(writePolicy, deps.Redis, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/shops/{shopId}", func(r chi.Router) {
			r.Post("/negotiation-invoices", controllers.CreateNegotiationInvoice(deps.Invoices, logg))
			r.Get("/negotiation-invoices/preview", controllers.NegotiationInvoicePreview(deps.Invoices, logg))
			r.Post("/payment-invoices", controllers.CreatePaymentInvoice(deps.Invoices, logg))
		})
		r.Get("/negotiation-invoices/{invoiceId}", controllers.GetNegotiationInvoice(deps.Invoices, logg))
		r.Get("/payment-invoices/{invoiceId}", controllers.GetPaymentInvoice(deps.Invoices, logg))

		r.Route("/redemptions", func(r chi.Router) {
			r.Get("/", controllers.ListRedemptions(deps.Redemptions, logg))
			r.Post("/", controllers.RecordRedemption(deps.Redemptions, logg))
			r.Patch("/{redemptionId}", controllers.UpdateRedemption(deps.Redemptions, logg))
			r.Delete("/{redemptionId}", controllers.DeleteRedemption(deps.Redemptions, logg))
		})
		r.Post("/purchases", controllers.RecordPurchase(deps.Purchases, logg))
	})

	return r
}
