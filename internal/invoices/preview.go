package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nishacrest/Beta-test-sub001/internal/redemptions"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
	"github.com/nishacrest/Beta-test-sub001/pkg/money"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

const displayDate = "02.01.2006"

// InvoiceData is everything the PDF template of a negotiation invoice prints.
// Amounts are display strings; nothing here is persisted.
type InvoiceData struct {
	InvoiceNumber string            `json:"invoice_number"`
	IssuedAt      string            `json:"issued_at"`
	PeriodStart   string            `json:"period_start"`
	PeriodEnd     string            `json:"period_end"`
	Shop          ShopSnapshot      `json:"shop"`
	Lines         []InvoiceDataLine `json:"lines"`
	TotalAmount   string            `json:"total_amount"`
	TotalFees     string            `json:"total_fees"`
	TotalPayout   string            `json:"total_payout"`
	FeeNet        string            `json:"fee_net"`
	FeeTax        string            `json:"fee_tax"`
	TaxRate       string            `json:"tax_rate"`
}

// ShopSnapshot is the billed shop as printed on the invoice.
type ShopSnapshot struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
	IBAN  *string   `json:"iban,omitempty"`
}

// InvoiceDataLine is one redemption row of the invoice.
type InvoiceDataLine struct {
	Code       string `json:"code"`
	RedeemedAt string `json:"redeemed_at"`
	Amount     string `json:"amount"`
	Fees       string `json:"fees"`
	Payout     string `json:"payout"`
}

// NegotiationInvoiceData prepares the invoice document for shopID and the given days
// without reserving the number. The fee total is split into net and VAT because the
// platform fee is charged tax inclusive.
func (s *service) NegotiationInvoiceData(ctx context.Context, shopID uuid.UUID, start, end time.Time) (*InvoiceData, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	period, err := types.NewPeriod(start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	admin, err := s.shops.FindAdmin(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform shop")
	}
	if admin == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "platform shop not found").WithReason(ReasonShopNotFound)
	}
	now := s.now().UTC()
	candidate, err := s.allocator.Next(admin, now)
	if err != nil {
		return nil, err
	}

	billed, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if billed == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found").WithReason(ReasonShopNotFound)
	}

	summary, err := s.negotiation.aggregator.GetRedemptionsOfInvoice(ctx, period, billed.ID, admin.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate redemptions")
	}
	if summary.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to settle for the selected period").WithReason(ReasonNoRedemptions)
	}

	split := money.InclusiveTaxSplit(summary.TotalFees, s.taxRate)
	return &InvoiceData{
		InvoiceNumber: candidate.Number,
		IssuedAt:      now.Format(displayDate),
		PeriodStart:   period.Start.Format(displayDate),
		PeriodEnd:     period.End.Format(displayDate),
		Shop: ShopSnapshot{
			ID:    billed.ID,
			Name:  billed.Name,
			Email: billed.Email,
			IBAN:  billed.IBAN,
		},
		Lines:       dataLines(summary.Redemptions),
		TotalAmount: money.FormatEuro(summary.TotalAmount),
		TotalFees:   money.FormatEuro(summary.TotalFees),
		TotalPayout: money.FormatEuro(summary.TotalPayout),
		FeeNet:      money.FormatEuro(split.Net),
		FeeTax:      money.FormatEuro(split.Tax),
		TaxRate:     formatRate(s.taxRate),
	}, nil
}

func dataLines(rows []redemptions.Line) []InvoiceDataLine {
	lines := make([]InvoiceDataLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, InvoiceDataLine{
			Code:       row.Code,
			RedeemedAt: row.RedeemedDate.UTC().Format(displayDate),
			Amount:     money.FormatEuro(row.Amount),
			Fees:       money.FormatEuro(row.Fees),
			Payout:     money.FormatEuro(row.Payout),
		})
	}
	return lines
}

func formatRate(rate decimal.Decimal) string {
	if rate.Equal(rate.Truncate(0)) {
		return money.FormatLocalized(rate, 0) + " %"
	}
	return money.FormatLocalized(rate, money.MoneyDecimals) + " %"
}
