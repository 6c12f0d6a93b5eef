package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NegotiationInvoice is the settlement document for redemptions the platform
// reimburses to a shop. Rows are immutable apart from soft deletion.
type NegotiationInvoice struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopID         uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	InvoiceNumber  string          `gorm:"column:invoice_number;not null;uniqueIndex"`
	RedeemedAmount decimal.Decimal `gorm:"column:redeemed_amount;type:numeric(12,2);not null"`
	FeeAmount      decimal.Decimal `gorm:"column:fee_amount;type:numeric(12,2);not null"`
	PayoutAmount   decimal.Decimal `gorm:"column:payout_amount;type:numeric(12,2);not null"`
	IBAN           *string         `gorm:"column:iban"`
	InvoicePDFURL  string          `gorm:"column:invoice_pdf_url;not null"`
	IssuedAt       time.Time       `gorm:"column:issued_at;not null"`
	StartDate      time.Time       `gorm:"column:start_date;not null"`
	EndDate        time.Time       `gorm:"column:end_date;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (n *NegotiationInvoice) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
