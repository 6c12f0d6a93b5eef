package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/internal/purchases"
	"github.com/nishacrest/Beta-test-sub001/internal/redemptions"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

// batch is the set of rows an invoice settles plus their totals.
type batch struct {
	ids    []uuid.UUID
	amount decimal.Decimal
	fees   decimal.Decimal
	payout decimal.Decimal
}

// draft is an invoice row ready to persist; amounts are already rounded.
type draft struct {
	ShopID   uuid.UUID
	Number   string
	Amount   decimal.Decimal
	Fees     decimal.Decimal
	Payout   decimal.Decimal
	IBAN     *string
	URL      string
	IssuedAt time.Time
	Period   types.Period
}

// settlementSource is what differs between negotiation and payment invoices.
type settlementSource interface {
	kind() enums.InvoiceKind
	emptyReason() string
	collect(ctx context.Context, tx *gorm.DB, period types.Period, billed, admin *models.Shop) (*batch, error)
	persist(ctx context.Context, repo Repository, d draft) (uuid.UUID, error)
	link(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error)
}

type redemptionSource struct {
	aggregator *redemptions.Aggregator
	repo       redemptions.Repository
}

func (redemptionSource) kind() enums.InvoiceKind { return enums.InvoiceKindNegotiation }

func (redemptionSource) emptyReason() string { return ReasonNoRedemptions }

func (s redemptionSource) collect(ctx context.Context, tx *gorm.DB, period types.Period, billed, admin *models.Shop) (*batch, error) {
	summary, err := s.aggregator.WithTx(tx).GetRedemptionsOfInvoice(ctx, period, billed.ID, admin.ID)
	if err != nil {
		return nil, err
	}
	return &batch{
		ids:    summary.IDs(),
		amount: summary.TotalAmount,
		fees:   summary.TotalFees,
		payout: summary.TotalPayout,
	}, nil
}

func (redemptionSource) persist(ctx context.Context, repo Repository, d draft) (uuid.UUID, error) {
	invoice := &models.NegotiationInvoice{
		ShopID:         d.ShopID,
		InvoiceNumber:  d.Number,
		RedeemedAmount: d.Amount,
		FeeAmount:      d.Fees,
		PayoutAmount:   d.Payout,
		IBAN:           d.IBAN,
		InvoicePDFURL:  d.URL,
		IssuedAt:       d.IssuedAt,
		StartDate:      d.Period.Start,
		EndDate:        d.Period.End,
	}
	if err := repo.CreateNegotiation(ctx, invoice); err != nil {
		return uuid.Nil, err
	}
	return invoice.ID, nil
}

func (s redemptionSource) link(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error) {
	return s.repo.WithTx(tx).LinkToInvoice(ctx, ids, invoiceID)
}

type purchaseSource struct {
	aggregator *purchases.Aggregator
	repo       purchases.Repository
}

func (purchaseSource) kind() enums.InvoiceKind { return enums.InvoiceKindPayment }

func (purchaseSource) emptyReason() string { return ReasonNoPurchases }

func (s purchaseSource) collect(ctx context.Context, tx *gorm.DB, period types.Period, billed, _ *models.Shop) (*batch, error) {
	summary, err := s.aggregator.WithTx(tx).GetPurchasesOfInvoice(ctx, period, billed.ID)
	if err != nil {
		return nil, err
	}
	return &batch{
		ids:    summary.IDs(),
		amount: summary.TotalAmount,
		fees:   summary.TotalFees,
		payout: summary.TotalPayout,
	}, nil
}

func (purchaseSource) persist(ctx context.Context, repo Repository, d draft) (uuid.UUID, error) {
	invoice := &models.PaymentInvoice{
		ShopID:        d.ShopID,
		InvoiceNumber: d.Number,
		TotalAmount:   d.Amount,
		FeeAmount:     d.Fees,
		PayoutAmount:  d.Payout,
		IBAN:          d.IBAN,
		InvoicePDFURL: d.URL,
		IssuedAt:      d.IssuedAt,
		StartDate:     d.Period.Start,
		EndDate:       d.Period.End,
	}
	if err := repo.CreatePayment(ctx, invoice); err != nil {
		return uuid.Nil, err
	}
	return invoice.ID, nil
}

func (s purchaseSource) link(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, invoiceID uuid.UUID) (int64, error) {
	return s.repo.WithTx(tx).LinkToInvoice(ctx, ids, invoiceID)
}
