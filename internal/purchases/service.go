package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/internal/giftcards"
	"github.com/nishacrest/Beta-test-sub001/internal/shops"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
	"github.com/nishacrest/Beta-test-sub001/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records gift card sales.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.Purchase, error)
}

// RecordInput describes a sale of a gift card.
type RecordInput struct {
	GiftCardID  uuid.UUID
	Amount      decimal.Decimal
	PurchasedAt time.Time
}

type service struct {
	tx    txRunner
	repo  Repository
	cards giftcards.Repository
	shops shops.Repository
	now   func() time.Time
}

// NewService wires purchase dependencies.
func NewService(tx txRunner, repo Repository, cards giftcards.Repository, shopRepo shops.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("purchase repository required")
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

// PurchaseFee is amount × platform_fee% plus the flat per-sale fee, rounded to cents.
func PurchaseFee(amount decimal.Decimal, shop *models.Shop) decimal.Decimal {
	if shop == nil {
		return decimal.Zero
	}
	return money.Round2(money.PercentOf(amount, shop.PlatformFee).Add(shop.FixedPaymentRedeemFee))
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.Purchase, error) {
	if input.GiftCardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift card id required")
	}
	amount := money.Round2(input.Amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	purchasedAt := input.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = s.now()
	}

	var created *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		card, err := s.cards.WithTx(tx).FindByID(ctx, input.GiftCardID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift card")
		}
		if card == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "gift card not found")
		}
		shop, err := s.shops.WithTx(tx).FindByID(ctx, card.ShopID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
		}
		if shop == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}

		row := &models.Purchase{
			GiftCardID:  card.ID,
			ShopID:      shop.ID,
			Amount:      amount,
			Fees:        PurchaseFee(amount, shop),
			PurchasedAt: purchasedAt.UTC(),
		}
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
