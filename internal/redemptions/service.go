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

	"github.com/nishacrest/Beta-test-sub001/internal/giftcards"
	"github.com/nishacrest/Beta-test-sub001/internal/shops"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
	"github.com/nishacrest/Beta-test-sub001/pkg/money"
	"github.com/nishacrest/Beta-test-sub001/pkg/pagination"
)

const (
	reasonRedemptionSettled = "REDEMPTION_SETTLED"
	reasonInsufficientFunds = "INSUFFICIENT_BALANCE"
	reasonCardNotRedeemable = "GIFT_CARD_NOT_REDEEMABLE"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records and edits redemptions ahead of settlement.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.Redemption, error)
	UpdateAmount(ctx context.Context, input UpdateInput) (*models.Redemption, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// RecordInput describes a redemption taken at a shop.
type RecordInput struct {
	GiftCardID uuid.UUID
	ShopID     uuid.UUID
	Amount     decimal.Decimal
	RedeemedAt time.Time
	Comment    *string
}

// UpdateInput edits the amount of an unsettled redemption.
type UpdateInput struct {
	ID      uuid.UUID
	Amount  decimal.Decimal
	Comment *string
}

// ListParams are the listing options accepted from callers. Column ids are resolved
// through the static sort and filter tables.
type ListParams struct {
	RedeemedShopID *uuid.UUID
	IssuerShopID   *uuid.UUID
	Settled        *bool
	From           *time.Time
	To             *time.Time
	Filters        map[string]string
	SortBy         string
	Desc           bool
	Page           int
	Limit          int
}

// ListResult is one page of the redemption listing.
type ListResult struct {
	Items []ListItem `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

type service struct {
	tx    txRunner
	repo  Repository
	cards giftcards.Repository
	shops shops.Repository
	now   func() time.Time
}

// NewService wires redemption dependencies.
func NewService(tx txRunner, repo Repository, cards giftcards.Repository, shopRepo shops.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("redemption repository required")
	}
	if cards == nil {
		return nil, fmt.Errorf("gift card repository required")
	}
	if shopRepo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	return &service{
		tx:    tx,
		repo:  repo,
		cards: cards,
		shops: shopRepo,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// RedemptionFee is the platform fee charged on a redemption at a shop.
func RedemptionFee(amount decimal.Decimal, shop *models.Shop) decimal.Decimal {
	if shop == nil {
		return decimal.Zero
	}
	return money.Round2(money.PercentOf(amount, shop.PlatformRedeemFee))
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.Redemption, error) {
	if input.GiftCardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift card id required")
	}
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	amount := money.Round2(input.Amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	redeemedAt := input.RedeemedAt
	if redeemedAt.IsZero() {
		redeemedAt = s.now()
	}

	var created *models.Redemption
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cards := s.cards.WithTx(tx)

		card, err := cards.LockByID(ctx, input.GiftCardID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift card")
		}
		if card == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "gift card not found")
		}
		if card.Mode == enums.GiftCardModeDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "gift card is not issued").WithReason(reasonCardNotRedeemable)
		}
		if card.AvailableAmount.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds gift card balance").WithReason(reasonInsufficientFunds)
		}

		shop, err := s.shops.WithTx(tx).FindByID(ctx, input.ShopID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
		}
		if shop == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}

		row := &models.Redemption{
			GiftCardID:     card.ID,
			Amount:         amount,
			Fees:           RedemptionFee(amount, shop),
			RedeemedShopID: shop.ID,
			IssuerShopID:   card.ShopID,
			RedeemedDate:   redeemedAt.UTC(),
			Comment:        trimmed(input.Comment),
		}
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create redemption")
		}
		if err := cards.SetAvailableAmount(ctx, card.ID, card.AvailableAmount.Sub(amount)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update gift card balance")
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateAmount floors the new amount to cents so an edit never credits more than entered.
func (s *service) UpdateAmount(ctx context.Context, input UpdateInput) (*models.Redemption, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	amount := money.Truncate(input.Amount, money.MoneyDecimals, money.ModeFloor)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}

	var updated *models.Redemption
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cards := s.cards.WithTx(tx)

		row, err := repo.LockByID(ctx, input.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redemption")
		}
		if row == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "redemption not found")
		}
		if row.Settled() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "redemption already invoiced").WithReason(reasonRedemptionSettled)
		}

		card, err := cards.LockByID(ctx, row.GiftCardID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift card")
		}
		if card == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "gift card not found")
		}
		delta := amount.Sub(row.Amount)
		balance := card.AvailableAmount.Sub(delta)
		if balance.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds gift card balance").WithReason(reasonInsufficientFunds)
		}

		shop, err := s.shops.WithTx(tx).FindByID(ctx, row.RedeemedShopID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
		}
		fees := RedemptionFee(amount, shop)
		comment := trimmed(input.Comment)

		if err := repo.UpdateAmount(ctx, row.ID, amount, fees, comment); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "redemption already invoiced").WithReason(reasonRedemptionSettled)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update redemption")
		}
		if !delta.IsZero() {
			if err := cards.SetAvailableAmount(ctx, card.ID, balance); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update gift card balance")
			}
		}

		row.Amount = amount
		row.Fees = fees
		if comment != nil {
			row.Comment = comment
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "redemption id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cards := s.cards.WithTx(tx)

		row, err := repo.LockByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redemption")
		}
		if row == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "redemption not found")
		}
		if row.Settled() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "redemption already invoiced").WithReason(reasonRedemptionSettled)
		}

		card, err := cards.LockByID(ctx, row.GiftCardID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift card")
		}
		if err := repo.SoftDelete(ctx, row.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete redemption")
		}
		if card != nil {
			if err := cards.SetAvailableAmount(ctx, card.ID, card.AvailableAmount.Add(row.Amount)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore gift card balance")
			}
		}
		return nil
	})
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	sortBy, err := ParseSortColumn(params.SortBy)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort column")
	}
	filters := make(map[FilterColumn]string, len(params.Filters))
	for key, value := range params.Filters {
		col, err := ParseFilterColumn(key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filter column")
		}
		if value = strings.TrimSpace(value); value != "" {
			filters[col] = value
		}
	}
	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}

	page := pagination.NormalizePage(params.Page)
	limit := pagination.NormalizeLimit(params.Limit)

	items, total, err := s.repo.List(ctx, ListFilter{
		RedeemedShopID: params.RedeemedShopID,
		IssuerShopID:   params.IssuerShopID,
		Settled:        params.Settled,
		From:           params.From,
		To:             params.To,
		Filters:        filters,
		Sort:           sortBy,
		Desc:           params.Desc,
		Limit:          limit,
		Offset:         pagination.Offset(page, limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list redemptions")
	}
	if items == nil {
		items = []ListItem{}
	}
	for i := range items {
		items[i].Payout = money.Round2(items[i].Amount.Sub(items[i].Fees))
	}

	return &ListResult{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
