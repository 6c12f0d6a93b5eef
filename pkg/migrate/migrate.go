package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `-cmd=create` writes new files during development.
const DefaultDir = "pkg/migrate/migrations"

const (
	dialect     = "postgres"
	embeddedDir = "migrations"
)

// The schema relies on partial unique indexes and numeric columns, so goose
// only runs against Postgres. SQLite databases are built from the models.
var errUnsupportedDriver = errors.New("migrations require the postgres driver")

// Supported reports whether goose migrations can run against driver.
func Supported(driver string) error {
	if driver != dialect {
		return fmt.Errorf("%w, got %q", errUnsupportedDriver, driver)
	}
	return nil
}

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded exposes the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, embeddedDir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Source selects where goose reads migrations from. A nil FS means the local
// filesystem rooted at Dir.
type Source struct {
	FS  fs.FS
	Dir string
}

// EmbeddedSource runs the migrations shipped with the binary.
func EmbeddedSource() Source {
	return Source{FS: embedded, Dir: embeddedDir}
}

// DirSource runs migrations from a directory on disk.
func DirSource(dir string) Source {
	return Source{Dir: dir}
}

func (s Source) prepare() error {
	if s.Dir == "" {
		return errors.New("migration dir is required")
	}
	goose.SetBaseFS(s.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Run executes a goose command such as up, down or status.
func Run(ctx context.Context, db *sql.DB, src Source, command string, args ...string) error {
	if db == nil {
		return errors.New("db is required")
	}
	if err := src.prepare(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, src.Dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, src Source, targetVersion string) error {
	if targetVersion == "" {
		return errors.New("target version is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	if err := src.prepare(); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case target < 0:
		return fmt.Errorf("version %d is negative", target)
	case current < target:
		if err := goose.UpToContext(ctx, db, src.Dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, src.Dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
