package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
)

// Repository exposes persistence helpers for shop notification settings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByShopID(ctx context.Context, shopID uuid.UUID) (*models.ShopNotificationSetting, error)
	Upsert(ctx context.Context, setting *models.ShopNotificationSetting) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByShopID(ctx context.Context, shopID uuid.UUID) (*models.ShopNotificationSetting, error) {
	var setting models.ShopNotificationSetting
	if err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *repositoryImpl) Upsert(ctx context.Context, setting *models.ShopNotificationSetting) error {
	if setting == nil {
		return errors.New("notification setting is required")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "payout_notification", "updated_at"}),
		}).
		Create(setting).Error
}
