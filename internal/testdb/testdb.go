// Package testdb opens throwaway sqlite databases carrying the settlement schema.
package testdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
)

var schema = []string{`
CREATE TABLE shops (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  is_admin INTEGER NOT NULL DEFAULT 0,
  platform_redeem_fee NUMERIC NOT NULL DEFAULT 0,
  platform_fee NUMERIC NOT NULL DEFAULT 0,
  fixed_payment_redeem_fee NUMERIC NOT NULL DEFAULT 0,
  iban TEXT,
  invoice_reference_number INTEGER,
  studio_id TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE UNIQUE INDEX shops_single_admin ON shops (is_admin) WHERE is_admin = 1;`, `
CREATE TABLE gift_cards (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  giftcard_mode TEXT NOT NULL DEFAULT 'DRAFT',
  amount NUMERIC NOT NULL,
  available_amount NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`, `
CREATE TABLE redemptions (
  id TEXT PRIMARY KEY,
  gift_card_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  fees NUMERIC NOT NULL DEFAULT 0,
  redeemed_shop_id TEXT NOT NULL,
  issuer_shop_id TEXT NOT NULL,
  redeemed_date DATETIME NOT NULL,
  negotiation_invoice_id TEXT,
  comment TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`, `
CREATE TABLE purchases (
  id TEXT PRIMARY KEY,
  gift_card_id TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  fees NUMERIC NOT NULL DEFAULT 0,
  purchased_at DATETIME NOT NULL,
  payment_invoice_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`, `
CREATE TABLE negotiation_invoices (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  invoice_number TEXT NOT NULL UNIQUE,
  redeemed_amount NUMERIC NOT NULL,
  fee_amount NUMERIC NOT NULL,
  payout_amount NUMERIC NOT NULL,
  iban TEXT,
  invoice_pdf_url TEXT NOT NULL,
  issued_at DATETIME NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`, `
CREATE TABLE payment_invoices (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  invoice_number TEXT NOT NULL UNIQUE,
  total_amount NUMERIC NOT NULL,
  fee_amount NUMERIC NOT NULL,
  payout_amount NUMERIC NOT NULL,
  iban TEXT,
  invoice_pdf_url TEXT NOT NULL,
  issued_at DATETIME NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`, `
CREATE TABLE shop_notification_settings (
  shop_id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  payout_notification INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

// Open returns a fresh database private to the calling test. It lives in a file
// under t.TempDir so it survives database/sql discarding a connection, which
// happens when a context is cancelled mid-transaction.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "settlement.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// Dec parses a literal decimal and panics on malformed input.
func Dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SeedAdmin inserts the platform shop with the given counter and studio id.
func SeedAdmin(t *testing.T, db *gorm.DB, counter *int64, studioID string) *models.Shop {
	t.Helper()
	shop := &models.Shop{
		Name:                   "Platform",
		IsAdmin:                true,
		InvoiceReferenceNumber: counter,
		StudioID:               studioID,
	}
	require.NoError(t, db.Create(shop).Error)
	return shop
}

// SeedShop inserts a regular tenant shop.
func SeedShop(t *testing.T, db *gorm.DB, name string, mutate ...func(*models.Shop)) *models.Shop {
	t.Helper()
	iban := "DE89370400440532013000"
	shop := &models.Shop{
		Name:              name,
		IBAN:              &iban,
		PlatformRedeemFee: decimal.Zero,
		PlatformFee:       decimal.Zero,
	}
	for _, fn := range mutate {
		fn(shop)
	}
	require.NoError(t, db.Create(shop).Error)
	return shop
}

// SeedCard inserts a gift card issued by shopID.
func SeedCard(t *testing.T, db *gorm.DB, shopID uuid.UUID, mode enums.GiftCardMode, amount string) *models.GiftCard {
	t.Helper()
	card := &models.GiftCard{
		ShopID:          shopID,
		Code:            "GC-" + uuid.NewString()[:8],
		Mode:            mode,
		Amount:          Dec(amount),
		AvailableAmount: Dec(amount),
	}
	require.NoError(t, db.Create(card).Error)
	return card
}

// SeedRedemption inserts an unsettled redemption of card at shop.
func SeedRedemption(t *testing.T, db *gorm.DB, card *models.GiftCard, shopID uuid.UUID, amount, fees string, at time.Time) *models.Redemption {
	t.Helper()
	row := &models.Redemption{
		GiftCardID:     card.ID,
		Amount:         Dec(amount),
		Fees:           Dec(fees),
		RedeemedShopID: shopID,
		IssuerShopID:   card.ShopID,
		RedeemedDate:   at.UTC(),
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

// SeedPurchase inserts an unsettled purchase of card.
func SeedPurchase(t *testing.T, db *gorm.DB, card *models.GiftCard, amount, fees string, at time.Time) *models.Purchase {
	t.Helper()
	row := &models.Purchase{
		GiftCardID:  card.ID,
		ShopID:      card.ShopID,
		Amount:      Dec(amount),
		Fees:        Dec(fees),
		PurchasedAt: at.UTC(),
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// Tx runs callbacks in a real transaction on the wrapped database.
type Tx struct {
	DB *gorm.DB
}

func (t Tx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.DB.WithContext(ctx).Transaction(fn)
}
