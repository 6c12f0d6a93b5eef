package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "add_invoice_index", SanitizeName("  Add Invoice-Index "))
	assert.Equal(t, "", SanitizeName("!!!"))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Backfill studio ids", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20250304050607_backfill_studio_ids.sql"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- +goose Up")
	assert.Contains(t, string(content), "-- rollback backfill_studio_ids")

	_, err = CreateSQLMigration(dir, "Backfill studio ids", now)
	require.Error(t, err, "existing files are never overwritten")

	require.NoError(t, Validate(os.DirFS(dir)))
}

func TestSupportedDrivers(t *testing.T) {
	assert.NoError(t, Supported("postgres"))

	err := Supported("sqlite")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnsupportedDriver)
}
