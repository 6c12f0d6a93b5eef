package purchases

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/pkg/money"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

// Summary is the billable content of one payment invoice. Totals follow the same
// rounding rule as redemption summaries: payout is a sum of per-row rounded values.
type Summary struct {
	Purchases   []Line          `json:"purchases"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalFees   decimal.Decimal `json:"total_fees"`
	TotalPayout decimal.Decimal `json:"total_payout"`
}

func (s *Summary) Empty() bool {
	return s == nil || len(s.Purchases) == 0
}

func (s *Summary) IDs() []uuid.UUID {
	if s == nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(s.Purchases))
	for _, line := range s.Purchases {
		ids = append(ids, line.ID)
	}
	return ids
}

// Aggregator computes unbilled purchase totals for a shop and period.
type Aggregator struct {
	repo Repository
}

func NewAggregator(repo Repository) (*Aggregator, error) {
	if repo == nil {
		return nil, errors.New("purchase repository required")
	}
	return &Aggregator{repo: repo}, nil
}

func (a *Aggregator) WithTx(tx *gorm.DB) *Aggregator {
	return &Aggregator{repo: a.repo.WithTx(tx)}
}

// GetPurchasesOfInvoice selects unsettled sales of shopID's LIVE cards within period.
func (a *Aggregator) GetPurchasesOfInvoice(ctx context.Context, period types.Period, shopID uuid.UUID) (*Summary, error) {
	lines, err := a.repo.FindUnsettled(ctx, period, shopID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		Purchases:   make([]Line, 0, len(lines)),
		TotalAmount: decimal.Zero,
		TotalFees:   decimal.Zero,
		TotalPayout: decimal.Zero,
	}
	for _, line := range lines {
		line.Payout = money.Round2(line.Amount.Sub(line.Fees))
		summary.TotalAmount = summary.TotalAmount.Add(line.Amount)
		summary.TotalFees = summary.TotalFees.Add(line.Fees)
		summary.TotalPayout = summary.TotalPayout.Add(line.Payout)
		summary.Purchases = append(summary.Purchases, line)
	}
	return summary, nil
}
