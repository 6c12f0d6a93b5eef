package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Redemption records value consumed from a gift card at a shop. A non-nil
// NegotiationInvoiceID marks the redemption as settled.
type Redemption struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	GiftCardID           uuid.UUID       `gorm:"column:gift_card_id;type:uuid;not null;index"`
	Amount               decimal.Decimal `gorm:"column:amount;type:numeric(14,4);not null"`
	Fees                 decimal.Decimal `gorm:"column:fees;type:numeric(14,4);not null;default:0"`
	RedeemedShopID       uuid.UUID       `gorm:"column:redeemed_shop_id;type:uuid;not null;index"`
	IssuerShopID         uuid.UUID       `gorm:"column:issuer_shop_id;type:uuid;not null"`
	RedeemedDate         time.Time       `gorm:"column:redeemed_date;not null"`
	NegotiationInvoiceID *uuid.UUID      `gorm:"column:negotiation_invoice_id;type:uuid;index"`
	Comment              *string         `gorm:"column:comment"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt            gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (r *Redemption) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Settled reports whether the redemption is already bound to an invoice.
func (r *Redemption) Settled() bool {
	return r != nil && r.NegotiationInvoiceID != nil
}
