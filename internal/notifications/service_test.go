package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishacrest/Beta-test-sub001/internal/testdb"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
	"github.com/nishacrest/Beta-test-sub001/pkg/mailer/sendgrid"
)

type recordingSender struct {
	sent []sendgrid.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg sendgrid.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func sampleNotice() PayoutNotice {
	iban := "DE89370400440532013000"
	return PayoutNotice{
		Kind:          enums.InvoiceKindNegotiation,
		ShopName:      "Café <Nord>",
		InvoiceNumber: "RE-X1-202542",
		PeriodStart:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC),
		Amount:        testdb.Dec("1234.5"),
		Fees:          testdb.Dec("61.73"),
		Payout:        testdb.Dec("1172.77"),
		IBAN:          &iban,
		InvoiceURL:    "https://files.example.com/invoices/negotiation/RE-X1-202542.pdf",
	}
}

func TestRenderPayout(t *testing.T) {
	msg, err := RenderPayout("shop@example.com", sampleNotice())
	require.NoError(t, err)

	assert.Equal(t, "shop@example.com", msg.To)
	assert.Equal(t, "Ihre Abrechnung RE-X1-202542", msg.Subject)
	assert.Contains(t, msg.HTML, "1.234,50 €")
	assert.Contains(t, msg.HTML, "1.172,77 €")
	assert.Contains(t, msg.HTML, "01.03.2025 bis 31.03.2025")
	assert.Contains(t, msg.HTML, "Eingelöste Gutscheine")
	assert.Contains(t, msg.HTML, "Café &lt;Nord&gt;")
	assert.Contains(t, msg.HTML, "DE89370400440532013000")
}

func TestRenderPayoutRequiresNumber(t *testing.T) {
	notice := sampleNotice()
	notice.InvoiceNumber = ""
	_, err := RenderPayout("shop@example.com", notice)
	require.Error(t, err)
}

func TestNotifyPayoutRespectsOptIn(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewNotifier(sender, nil)
	ctx := context.Background()

	require.NoError(t, notifier.NotifyPayout(ctx, nil, sampleNotice()))
	require.NoError(t, notifier.NotifyPayout(ctx, &models.ShopNotificationSetting{Email: "x@example.com", PayoutNotification: false}, sampleNotice()))
	require.NoError(t, notifier.NotifyPayout(ctx, &models.ShopNotificationSetting{Email: " ", PayoutNotification: true}, sampleNotice()))
	assert.Empty(t, sender.sent)

	require.NoError(t, notifier.NotifyPayout(ctx, &models.ShopNotificationSetting{Email: "x@example.com", PayoutNotification: true}, sampleNotice()))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "x@example.com", sender.sent[0].To)
}

func TestNotifyPayoutPropagatesSendError(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	notifier := NewNotifier(sender, nil)

	err := notifier.NotifyPayout(context.Background(), &models.ShopNotificationSetting{Email: "x@example.com", PayoutNotification: true}, sampleNotice())
	require.Error(t, err)
}

func TestNotifyPayoutWithoutSenderIsNoop(t *testing.T) {
	notifier := NewNotifier(nil, nil)
	err := notifier.NotifyPayout(context.Background(), &models.ShopNotificationSetting{Email: "x@example.com", PayoutNotification: true}, sampleNotice())
	require.NoError(t, err)
}
