package purchases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/internal/giftcards"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

// Repository persists gift card sales and answers payment settlement queries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) error
	FindUnsettled(ctx context.Context, period types.Period, shopID uuid.UUID) ([]Line, error)
	LinkToInvoice(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error)
}

// Line is a billable purchase joined with its gift card.
type Line struct {
	ID          uuid.UUID       `gorm:"column:id" json:"id"`
	GiftCardID  uuid.UUID       `gorm:"column:gift_card_id" json:"gift_card_id"`
	Code        string          `gorm:"column:code" json:"code"`
	Amount      decimal.Decimal `gorm:"column:amount" json:"amount"`
	Fees        decimal.Decimal `gorm:"column:fees" json:"fees"`
	Payout      decimal.Decimal `gorm:"-" json:"payout"`
	PurchasedAt time.Time       `gorm:"column:purchased_at" json:"purchased_at"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, purchase *models.Purchase) error {
	if purchase == nil {
		return errors.New("purchase is required")
	}
	return r.db.WithContext(ctx).Create(purchase).Error
}

// FindUnsettled returns purchases of LIVE cards issued by shopID not yet on a payment
// invoice, newest first.
func (r *repository) FindUnsettled(ctx context.Context, period types.Period, shopID uuid.UUID) ([]Line, error) {
	var rows []Line
	err := r.db.WithContext(ctx).
		Table("purchases").
		Select("purchases.id, purchases.gift_card_id, gift_cards.code, purchases.amount, purchases.fees, purchases.purchased_at").
		Scopes(giftcards.JoinCards("purchases"), giftcards.LiveCardsOf(shopID)).
		Where("purchases.deleted_at IS NULL").
		Where("purchases.payment_invoice_id IS NULL").
		Where("purchases.shop_id = ?", shopID).
		Where("purchases.purchased_at >= ? AND purchases.purchased_at <= ?", period.Start, period.End).
		Order("purchases.purchased_at DESC").
		Order("purchases.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) LinkToInvoice(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id IN ? AND payment_invoice_id IS NULL", ids).
		Update("payment_invoice_id", invoiceID)
	return result.RowsAffected, result.Error
}
