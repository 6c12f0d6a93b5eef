package giftcards

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
)

// Repository exposes the gift card reads and balance writes used by settlement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.GiftCard, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.GiftCard, error)
	SetAvailableAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gift card repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GiftCard, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.GiftCard, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) find(query *gorm.DB, id uuid.UUID) (*models.GiftCard, error) {
	var card models.GiftCard
	if err := query.Where("id = ?", id).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *repository) SetAvailableAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("id = ?", id).
		Update("available_amount", amount)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LiveCardsOf restricts a query joined to gift_cards to LIVE cards issued by shopID.
func LiveCardsOf(shopID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("gift_cards.shop_id = ? AND gift_cards.giftcard_mode = ?", shopID, enums.GiftCardModeLive)
	}
}

// LiveAdminCards is the settlement scope: only LIVE cards issued by the platform shop
// are reimbursed through negotiation invoices.
func LiveAdminCards(adminID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return LiveCardsOf(adminID)
}

// JoinCards inner joins live (not deleted) gift cards onto a table carrying gift_card_id.
func JoinCards(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN gift_cards ON gift_cards.id = " + table + ".gift_card_id AND gift_cards.deleted_at IS NULL")
	}
}
