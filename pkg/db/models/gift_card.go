package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
)

// GiftCard is a voucher issued by a shop.
type GiftCard struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ShopID          uuid.UUID          `gorm:"column:shop_id;type:uuid;not null;index"`
	Code            string             `gorm:"column:code;not null;uniqueIndex"`
	Mode            enums.GiftCardMode `gorm:"column:giftcard_mode;not null;default:'DRAFT'"`
	Amount          decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	AvailableAmount decimal.Decimal    `gorm:"column:available_amount;type:numeric(12,2);not null"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt       gorm.DeletedAt     `gorm:"column:deleted_at;index"`
}

func (g *GiftCard) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
