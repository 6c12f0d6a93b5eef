package redemptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishacrest/Beta-test-sub001/internal/giftcards"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

// Repository persists redemptions and answers settlement queries over them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, redemption *models.Redemption) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error)
	UpdateAmount(ctx context.Context, id uuid.UUID, amount, fees decimal.Decimal, comment *string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	FindUnsettled(ctx context.Context, filter UnsettledFilter) ([]Line, error)
	LinkToInvoice(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error)
	List(ctx context.Context, query ListFilter) ([]ListItem, int64, error)
}

// UnsettledFilter selects redemptions that can still be billed.
type UnsettledFilter struct {
	Period       types.Period
	BilledShopID uuid.UUID
	AdminShopID  uuid.UUID
}

// Line is a billable redemption joined with its gift card.
type Line struct {
	ID           uuid.UUID       `gorm:"column:id" json:"id"`
	GiftCardID   uuid.UUID       `gorm:"column:gift_card_id" json:"gift_card_id"`
	Code         string          `gorm:"column:code" json:"code"`
	Amount       decimal.Decimal `gorm:"column:amount" json:"amount"`
	Fees         decimal.Decimal `gorm:"column:fees" json:"fees"`
	Payout       decimal.Decimal `gorm:"-" json:"payout"`
	RedeemedDate time.Time       `gorm:"column:redeemed_date" json:"redeemed_date"`
	Comment      *string         `gorm:"column:comment" json:"comment,omitempty"`
}

// ListItem is one row of the redemption listing.
type ListItem struct {
	ID                   uuid.UUID       `gorm:"column:id" json:"id"`
	Code                 string          `gorm:"column:code" json:"code"`
	Amount               decimal.Decimal `gorm:"column:amount" json:"amount"`
	Fees                 decimal.Decimal `gorm:"column:fees" json:"fees"`
	Payout               decimal.Decimal `gorm:"-" json:"payout"`
	RedeemedDate         time.Time       `gorm:"column:redeemed_date" json:"redeemed_date"`
	RedeemedShopID       uuid.UUID       `gorm:"column:redeemed_shop_id" json:"redeemed_shop_id"`
	RedeemedShopName     string          `gorm:"column:redeemed_shop_name" json:"redeemed_shop_name"`
	IssuerShopID         uuid.UUID       `gorm:"column:issuer_shop_id" json:"issuer_shop_id"`
	NegotiationInvoiceID *uuid.UUID      `gorm:"column:negotiation_invoice_id" json:"negotiation_invoice_id,omitempty"`
	Comment              *string         `gorm:"column:comment" json:"comment,omitempty"`
}

// ListFilter narrows and orders the redemption listing. Sort must be a known column.
type ListFilter struct {
	RedeemedShopID *uuid.UUID
	IssuerShopID   *uuid.UUID
	Settled        *bool
	From           *time.Time
	To             *time.Time
	Filters        map[FilterColumn]string
	Sort           SortColumn
	Desc           bool
	Limit          int
	Offset         int
}

type repository struct {
	db *gorm.DB
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// NewRepository returns a redemption repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, redemption *models.Redemption) error {
	if redemption == nil {
		return errors.New("redemption is required")
	}
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) find(query *gorm.DB, id uuid.UUID) (*models.Redemption, error) {
	var row models.Redemption
	if err := query.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// UpdateAmount rewrites amount and fees of an unsettled redemption. Settled rows are
// left untouched and reported as not found.
func (r *repository) UpdateAmount(ctx context.Context, id uuid.UUID, amount, fees decimal.Decimal, comment *string) error {
	updates := map[string]any{
		"amount": amount,
		"fees":   fees,
	}
	if comment != nil {
		updates["comment"] = *comment
	}
	result := r.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("id = ? AND negotiation_invoice_id IS NULL", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND negotiation_invoice_id IS NULL", id).
		Delete(&models.Redemption{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindUnsettled returns billable redemptions, newest first.
func (r *repository) FindUnsettled(ctx context.Context, filter UnsettledFilter) ([]Line, error) {
	var rows []Line
	err := r.db.WithContext(ctx).
		Table("redemptions").
		Select("redemptions.id, redemptions.gift_card_id, gift_cards.code, redemptions.amount, redemptions.fees, redemptions.redeemed_date, redemptions.comment").
		Scopes(giftcards.JoinCards("redemptions"), giftcards.LiveAdminCards(filter.AdminShopID)).
		Where("redemptions.deleted_at IS NULL").
		Where("redemptions.negotiation_invoice_id IS NULL").
		Where("redemptions.redeemed_shop_id = ?", filter.BilledShopID).
		Where("redemptions.redeemed_date >= ? AND redemptions.redeemed_date <= ?", filter.Period.Start, filter.Period.End).
		Order("redemptions.redeemed_date DESC").
		Order("redemptions.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LinkToInvoice claims unsettled redemptions for invoiceID and returns how many rows
// were claimed. Rows already linked elsewhere are not touched.
func (r *repository) LinkToInvoice(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("id IN ? AND negotiation_invoice_id IS NULL", ids).
		Update("negotiation_invoice_id", invoiceID)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, q ListFilter) ([]ListItem, int64, error) {
	base := r.db.WithContext(ctx).
		Table("redemptions").
		Scopes(giftcards.JoinCards("redemptions")).
		Joins("JOIN shops AS redeemed_shop ON redeemed_shop.id = redemptions.redeemed_shop_id").
		Where("redemptions.deleted_at IS NULL")

	if q.RedeemedShopID != nil {
		base = base.Where("redemptions.redeemed_shop_id = ?", *q.RedeemedShopID)
	}
	if q.IssuerShopID != nil {
		base = base.Where("redemptions.issuer_shop_id = ?", *q.IssuerShopID)
	}
	if q.Settled != nil {
		if *q.Settled {
			base = base.Where("redemptions.negotiation_invoice_id IS NOT NULL")
		} else {
			base = base.Where("redemptions.negotiation_invoice_id IS NULL")
		}
	}
	if q.From != nil {
		base = base.Where("redemptions.redeemed_date >= ?", q.From.UTC())
	}
	if q.To != nil {
		base = base.Where("redemptions.redeemed_date <= ?", q.To.UTC())
	}
	for col, value := range q.Filters {
		field, ok := col.field()
		if !ok {
			return nil, 0, fmt.Errorf("unknown filter column %q", col)
		}
		base = base.Where("LOWER("+field+`) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(value))+"%")
	}

	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField, ok := q.Sort.field()
	if !ok {
		return nil, 0, fmt.Errorf("unknown sort column %q", q.Sort)
	}

	var rows []ListItem
	err := base.
		Select("redemptions.id, gift_cards.code, redemptions.amount, redemptions.fees, redemptions.redeemed_date, " +
			"redemptions.redeemed_shop_id, redeemed_shop.name AS redeemed_shop_name, redemptions.issuer_shop_id, " +
			"redemptions.negotiation_invoice_id, redemptions.comment").
		Order(clause.OrderByColumn{Column: clause.Column{Name: sortField, Raw: true}, Desc: q.Desc}).
		Order("redemptions.id ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
