package redemptions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/pkg/money"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

// Summary is the billable content of one negotiation invoice.
//
// TotalAmount and TotalFees are exact sums of the raw row values. TotalPayout is the
// sum of the per-row payouts, each already rounded to cents, so it can differ from
// round2(TotalAmount-TotalFees) by up to one cent per row.
type Summary struct {
	Redemptions []Line          `json:"redemptions"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	TotalPayout decimal.Decimal `json:"total_payout"`
}

// Empty reports whether nothing is billable.
func (s *Summary) Empty() bool {
	return s == nil || len(s.Redemptions) == 0
}

// IDs returns the redemption ids in result order.
func (s *Summary) IDs() []uuid.UUID {
	if s == nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(s.Redemptions))
	for _, line := range s.Redemptions {
		ids = append(ids, line.ID)
	}
	return ids
}

// Aggregator computes unbilled redemption totals for a shop and period.
type Aggregator struct {
	repo Repository
}

// NewAggregator wires the aggregator to the redemption repository.
func NewAggregator(repo Repository) (*Aggregator, error) {
	if repo == nil {
		return nil, errors.New("redemption repository required")
	}
	return &Aggregator{repo: repo}, nil
}

// WithTx binds subsequent reads to tx so they observe the caller's transaction.
func (a *Aggregator) WithTx(tx *gorm.DB) *Aggregator {
	return &Aggregator{repo: a.repo.WithTx(tx)}
}

// GetRedemptionsOfInvoice selects the unsettled redemptions at billedShopID within period
// whose gift card is a LIVE card issued by adminShopID, ordered newest first.
func (a *Aggregator) GetRedemptionsOfInvoice(ctx context.Context, period types.Period, billedShopID, adminShopID uuid.UUID) (*Summary, error) {
	lines, err := a.repo.FindUnsettled(ctx, UnsettledFilter{
		Period:       period,
		BilledShopID: billedShopID,
		AdminShopID:  adminShopID,
	})
	if err != nil {
		return nil, err
	}
	return Summarize(lines), nil
}

// Summarize fills per-row payouts and the totals of lines.
func Summarize(lines []Line) *Summary {
	summary := &Summary{
		Redemptions: make([]Line, 0, len(lines)),
		TotalAmount: decimal.Zero,
		TotalFees:   decimal.Zero,
		TotalPayout: decimal.Zero,
	}
	for _, line := range lines {
		line.Payout = money.Round2(line.Amount.Sub(line.Fees))
		summary.TotalAmount = summary.TotalAmount.Add(line.Amount)
		summary.TotalFees = summary.TotalFees.Add(line.Fees)
		summary.TotalPayout = summary.TotalPayout.Add(line.Payout)
		summary.Redemptions = append(summary.Redemptions, line)
	}
	return summary
}
