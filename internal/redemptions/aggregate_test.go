package redemptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishacrest/Beta-test-sub001/internal/testdb"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
	"github.com/nishacrest/Beta-test-sub001/pkg/money"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

func march2025(t *testing.T) types.Period {
	t.Helper()
	p, err := types.NewPeriod(testdb.Date(2025, time.March, 1), testdb.Date(2025, time.March, 31))
	require.NoError(t, err)
	return p
}

func TestSummarizeUsesPerRowPayouts(t *testing.T) {
	lines := []Line{
		{ID: uuid.New(), Amount: testdb.Dec("10.00"), Fees: testdb.Dec("0")},
		{ID: uuid.New(), Amount: testdb.Dec("10.005"), Fees: testdb.Dec("0.005")},
	}

	summary := Summarize(lines)

	assert.True(t, summary.Redemptions[0].Payout.Equal(testdb.Dec("10.00")))
	assert.True(t, summary.Redemptions[1].Payout.Equal(testdb.Dec("10.00")))
	assert.True(t, summary.TotalPayout.Equal(testdb.Dec("20.00")))
	assert.True(t, summary.TotalAmount.Equal(testdb.Dec("20.005")))
	assert.True(t, summary.TotalFees.Equal(testdb.Dec("0.005")))
	assert.Equal(t, "20.01", money.Round2(summary.TotalAmount).StringFixed(2))
	assert.Equal(t, "0.01", money.Round2(summary.TotalFees).StringFixed(2))
}

func TestSummarizeDivergesFromNaiveAggregate(t *testing.T) {
	// each row pays out 0.005, rounded up to one cent per row
	lines := []Line{
		{ID: uuid.New(), Amount: testdb.Dec("1.005"), Fees: testdb.Dec("1.00")},
		{ID: uuid.New(), Amount: testdb.Dec("1.005"), Fees: testdb.Dec("1.00")},
		{ID: uuid.New(), Amount: testdb.Dec("1.005"), Fees: testdb.Dec("1.00")},
	}

	summary := Summarize(lines)

	expected := testdb.Dec("0")
	for _, line := range lines {
		expected = expected.Add(money.Round2(line.Amount.Sub(line.Fees)))
	}
	assert.True(t, summary.TotalPayout.Equal(expected))
	assert.Equal(t, "0.03", summary.TotalPayout.StringFixed(2))

	naive := money.Round2(summary.TotalAmount.Sub(summary.TotalFees))
	assert.Equal(t, "0.02", naive.StringFixed(2))
	assert.False(t, naive.Equal(summary.TotalPayout))
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.True(t, summary.Empty())
	assert.True(t, summary.TotalPayout.IsZero())
	assert.Empty(t, summary.IDs())
}

func TestGetRedemptionsOfInvoiceFilters(t *testing.T) {
	db := testdb.Open(t)
	admin := testdb.SeedAdmin(t, db, testdb.Int64(1), "X1")
	billed := testdb.SeedShop(t, db, "Billed")
	otherShop := testdb.SeedShop(t, db, "Other")
	issuer := testdb.SeedShop(t, db, "Issuer")

	liveCard := testdb.SeedCard(t, db, admin.ID, enums.GiftCardModeLive, "500")
	testCard := testdb.SeedCard(t, db, admin.ID, enums.GiftCardModeTest, "500")
	foreignCard := testdb.SeedCard(t, db, issuer.ID, enums.GiftCardModeLive, "500")

	early := testdb.SeedRedemption(t, db, liveCard, billed.ID, "20.00", "1.00", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	late := testdb.SeedRedemption(t, db, liveCard, billed.ID, "30.00", "1.50", time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC))
	testdb.SeedRedemption(t, db, liveCard, billed.ID, "5.00", "0", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	testdb.SeedRedemption(t, db, liveCard, otherShop.ID, "7.00", "0", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	testdb.SeedRedemption(t, db, testCard, billed.ID, "8.00", "0", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	testdb.SeedRedemption(t, db, foreignCard, billed.ID, "9.00", "0", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	deleted := testdb.SeedRedemption(t, db, liveCard, billed.ID, "11.00", "0", time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, db.Delete(&models.Redemption{}, "id = ?", deleted.ID).Error)

	agg, err := NewAggregator(NewRepository(db))
	require.NoError(t, err)

	summary, err := agg.GetRedemptionsOfInvoice(context.Background(), march2025(t), billed.ID, admin.ID)
	require.NoError(t, err)

	require.Len(t, summary.Redemptions, 2)
	assert.Equal(t, late.ID, summary.Redemptions[0].ID, "newest first")
	assert.Equal(t, early.ID, summary.Redemptions[1].ID)
	assert.Equal(t, liveCard.Code, summary.Redemptions[0].Code)
	assert.True(t, summary.TotalAmount.Equal(testdb.Dec("50")))
	assert.True(t, summary.TotalFees.Equal(testdb.Dec("2.5")))
	assert.True(t, summary.TotalPayout.Equal(testdb.Dec("47.5")))
}

func TestGetRedemptionsOfInvoiceExcludesLinked(t *testing.T) {
	db := testdb.Open(t)
	admin := testdb.SeedAdmin(t, db, testdb.Int64(1), "X1")
	billed := testdb.SeedShop(t, db, "Billed")
	card := testdb.SeedCard(t, db, admin.ID, enums.GiftCardModeLive, "500")
	first := testdb.SeedRedemption(t, db, card, billed.ID, "10.00", "0.50", time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC))
	second := testdb.SeedRedemption(t, db, card, billed.ID, "12.00", "0.60", time.Date(2025, 3, 6, 9, 0, 0, 0, time.UTC))

	repo := NewRepository(db)
	agg, err := NewAggregator(repo)
	require.NoError(t, err)
	ctx := context.Background()

	summary, err := agg.GetRedemptionsOfInvoice(ctx, march2025(t), billed.ID, admin.ID)
	require.NoError(t, err)
	require.Len(t, summary.Redemptions, 2)

	invoiceID := uuid.New()
	claimed, err := repo.LinkToInvoice(ctx, summary.IDs(), invoiceID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), claimed)

	for _, period := range []types.Period{march2025(t), mustPeriod(t, 2025, time.March, 5, 2025, time.March, 5), mustPeriod(t, 2024, time.January, 1, 2026, time.January, 1)} {
		again, err := agg.GetRedemptionsOfInvoice(ctx, period, billed.ID, admin.ID)
		require.NoError(t, err)
		assert.True(t, again.Empty())
	}

	claimed, err = repo.LinkToInvoice(ctx, []uuid.UUID{first.ID, second.ID}, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, claimed, "settled rows cannot be claimed twice")
}

func TestAggregatorWithTxReadsInsideTransaction(t *testing.T) {
	db := testdb.Open(t)
	admin := testdb.SeedAdmin(t, db, testdb.Int64(1), "X1")
	billed := testdb.SeedShop(t, db, "Billed")
	card := testdb.SeedCard(t, db, admin.ID, enums.GiftCardModeLive, "500")
	row := testdb.SeedRedemption(t, db, card, billed.ID, "10.00", "0", time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC))

	repo := NewRepository(db)
	agg, err := NewAggregator(repo)
	require.NoError(t, err)

	tx := db.Begin()
	defer tx.Rollback()
	_, err = repo.WithTx(tx).LinkToInvoice(context.Background(), []uuid.UUID{row.ID}, uuid.New())
	require.NoError(t, err)

	summary, err := agg.WithTx(tx).GetRedemptionsOfInvoice(context.Background(), march2025(t), billed.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, summary.Empty(), "uncommitted link must be visible to the same transaction")
}

func mustPeriod(t *testing.T, y1 int, m1 time.Month, d1 int, y2 int, m2 time.Month, d2 int) types.Period {
	t.Helper()
	p, err := types.NewPeriod(testdb.Date(y1, m1, d1), testdb.Date(y2, m2, d2))
	require.NoError(t, err)
	return p
}
