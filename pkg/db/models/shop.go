package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shop is a tenant of the marketplace. Exactly one shop carries IsAdmin and acts as
// the platform operator whose counter numbers every settlement invoice.
type Shop struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name                   string          `gorm:"column:name;not null"`
	Email                  *string         `gorm:"column:email"`
	IsAdmin                bool            `gorm:"column:is_admin;not null;default:false"`
	PlatformRedeemFee      decimal.Decimal `gorm:"column:platform_redeem_fee;type:numeric(5,2);not null;default:0"`
	PlatformFee            decimal.Decimal `gorm:"column:platform_fee;type:numeric(5,2);not null;default:0"`
	FixedPaymentRedeemFee  decimal.Decimal `gorm:"column:fixed_payment_redeem_fee;type:numeric(12,2);not null;default:0"`
	IBAN                   *string         `gorm:"column:iban"`
	InvoiceReferenceNumber *int64          `gorm:"column:invoice_reference_number"`
	StudioID               string          `gorm:"column:studio_id;not null;default:''"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shop) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
