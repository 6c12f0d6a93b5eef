package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nishacrest/Beta-test-sub001/internal/shops"
	"github.com/nishacrest/Beta-test-sub001/pkg/config"
	"github.com/nishacrest/Beta-test-sub001/pkg/db"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
	counter string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|init-counter")
	flag.StringVar(&opts.dir, "dir", "", "read migrations from this directory instead of the embedded set")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.StringVar(&opts.counter, "counter", "", "starting invoice counter for -cmd=init-counter")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name")
		}
		target := opts.dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil

	case "validate":
		fsys := migrate.Embedded()
		if opts.dir != "" {
			fsys = os.DirFS(opts.dir)
		}
		if err := migrate.Validate(fsys); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer func() { _ = dbClient.Close() }()

	if opts.cmd == "init-counter" {
		return initCounter(ctx, logg, shops.NewRepository(dbClient.DB()), opts.counter)
	}

	if err := migrate.Supported(dbClient.Driver()); err != nil {
		return err
	}
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	src := migrate.EmbeddedSource()
	if opts.dir != "" {
		src = migrate.DirSource(opts.dir)
	}

	switch opts.cmd {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, src, opts.cmd)
	case "version":
		if opts.version == "" {
			return errors.New("missing -version")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, src, opts.version)
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}

// initCounter seeds the platform shop's invoice counter. It refuses to touch a
// counter that is already set, since numbers are never reissued.
func initCounter(ctx context.Context, logg *logger.Logger, repo shops.Repository, raw string) error {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return fmt.Errorf("-counter must be a non-negative integer, got %q", raw)
	}
	admin, err := repo.FindAdmin(ctx)
	if err != nil {
		return err
	}
	if admin == nil {
		return errors.New("platform shop not found")
	}
	ok, err := repo.AdvanceInvoiceCounter(ctx, admin.ID, nil, value)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invoice counter of %s is already set", admin.ID)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"shop_id": admin.ID.String(), "counter": value}), "migrate.counter_initialised")
	return nil
}
