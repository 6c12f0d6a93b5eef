package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/nishacrest/Beta-test-sub001/api/routes"
	"github.com/nishacrest/Beta-test-sub001/internal/giftcards"
	"github.com/nishacrest/Beta-test-sub001/internal/invoices"
	"github.com/nishacrest/Beta-test-sub001/internal/notifications"
	"github.com/nishacrest/Beta-test-sub001/internal/purchases"
	"github.com/nishacrest/Beta-test-sub001/internal/redemptions"
	"github.com/nishacrest/Beta-test-sub001/internal/shops"
	"github.com/nishacrest/Beta-test-sub001/pkg/config"
	"github.com/nishacrest/Beta-test-sub001/pkg/db"
	"github.com/nishacrest/Beta-test-sub001/pkg/instance"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/mailer/sendgrid"
	"github.com/nishacrest/Beta-test-sub001/pkg/metrics"
	"github.com/nishacrest/Beta-test-sub001/pkg/migrate"
	"github.com/nishacrest/Beta-test-sub001/pkg/redis"
	"github.com/nishacrest/Beta-test-sub001/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisStore routes.RedisStore
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		redisStore = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, idempotency and rate limiting disabled")
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, gcsClient.Close()) }()

	var sender notifications.Sender
	if cfg.Sendgrid.Enabled() {
		mailClient, err := sendgrid.NewClient(cfg.Sendgrid)
		if err != nil {
			return err
		}
		sender = mailClient
	} else {
		logg.Warn(ctx, "sendgrid not configured, payout mails disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gormDB := dbClient.DB()
	shopRepo := shops.NewRepository(gormDB)
	cardRepo := giftcards.NewRepository(gormDB)
	redemptionRepo := redemptions.NewRepository(gormDB)
	purchaseRepo := purchases.NewRepository(gormDB)

	redemptionService, err := redemptions.NewService(dbClient, redemptionRepo, cardRepo, shopRepo)
	if err != nil {
		return err
	}
	purchaseService, err := purchases.NewService(dbClient, purchaseRepo, cardRepo, shopRepo)
	if err != nil {
		return err
	}
	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Tx:          dbClient,
		Shops:       shopRepo,
		Invoices:    invoices.NewRepository(gormDB),
		Redemptions: redemptionRepo,
		Purchases:   purchaseRepo,
		Settings:    notifications.NewRepository(gormDB),
		Blobs:       gcsClient,
		Notifier:    notifications.NewNotifier(sender, logg),
		Metrics:     metrics.NewSettlementMetrics(registry),
		Logger:      logg,
		Timeout:     cfg.Settlement.Timeout,
		TaxRate:     cfg.Settlement.TaxRate(),
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:          dbClient,
			Redis:       redisStore,
			Storage:     gcsClient,
			Gatherer:    registry,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
			Invoices:    invoiceService,
			Redemptions: redemptionService,
			Purchases:   purchaseService,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
