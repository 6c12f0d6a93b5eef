package migrate

import (
	"context"
	"fmt"

	"github.com/nishacrest/Beta-test-sub001/pkg/config"
	"github.com/nishacrest/Beta-test-sub001/pkg/db"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when running in dev with
// GIFTCARD_AUTO_MIGRATE enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if err := Supported(client.Driver()); err != nil {
		logg.Warn(logg.WithField(ctx, "driver", client.Driver()), "migrate.autorun_skipped")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "migrate.autorun_started")
	if err := Run(ctx, sqlDB, EmbeddedSource(), "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "migrate.autorun_completed")
	return nil
}
