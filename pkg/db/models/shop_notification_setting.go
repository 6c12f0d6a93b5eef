package models

import (
	"time"

	"github.com/google/uuid"
)

// ShopNotificationSetting stores which settlement mails a shop opted into.
type ShopNotificationSetting struct {
	ShopID             uuid.UUID `gorm:"column:shop_id;type:uuid;primaryKey"`
	Email              string    `gorm:"column:email;not null"`
	PayoutNotification bool      `gorm:"column:payout_notification;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
