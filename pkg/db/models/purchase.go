package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Purchase records a gift card sale the platform collected on behalf of the issuing shop.
type Purchase struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	GiftCardID       uuid.UUID       `gorm:"column:gift_card_id;type:uuid;not null;index"`
	ShopID           uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(14,4);not null"`
	Fees             decimal.Decimal `gorm:"column:fees;type:numeric(14,4);not null;default:0"`
	PurchasedAt      time.Time       `gorm:"column:purchased_at;not null"`
	PaymentInvoiceID *uuid.UUID      `gorm:"column:payment_invoice_id;type:uuid;index"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt        gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (p *Purchase) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
