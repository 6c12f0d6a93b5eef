package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentInvoice settles gift card sales collected by the platform for a shop.
type PaymentInvoice struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopID        uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	InvoiceNumber string          `gorm:"column:invoice_number;not null;uniqueIndex"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	FeeAmount     decimal.Decimal `gorm:"column:fee_amount;type:numeric(12,2);not null"`
	PayoutAmount  decimal.Decimal `gorm:"column:payout_amount;type:numeric(12,2);not null"`
	IBAN          *string         `gorm:"column:iban"`
	InvoicePDFURL string          `gorm:"column:invoice_pdf_url;not null"`
	IssuedAt      time.Time       `gorm:"column:issued_at;not null"`
	StartDate     time.Time       `gorm:"column:start_date;not null"`
	EndDate       time.Time       `gorm:"column:end_date;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (p *PaymentInvoice) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
