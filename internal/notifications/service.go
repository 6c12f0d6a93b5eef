package notifications

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/mailer/sendgrid"
	"github.com/nishacrest/Beta-test-sub001/pkg/money"
)

//go:embed templates/*.html
var templateFS embed.FS

var payoutTemplate = template.Must(template.ParseFS(templateFS, "templates/payout.html"))

const dateLayout = "02.01.2006"

// Sender delivers a rendered mail.
type Sender interface {
	Send(ctx context.Context, msg sendgrid.Message) error
}

// PayoutNotice carries the invoice metadata shown in a payout mail.
type PayoutNotice struct {
	Kind          enums.InvoiceKind
	ShopName      string
	InvoiceNumber string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Amount        decimal.Decimal
	Fees          decimal.Decimal
	Payout        decimal.Decimal
	IBAN          *string
	InvoiceURL    string
}

// Notifier sends settlement mails to shops that opted in.
type Notifier struct {
	sender Sender
	logg   *logger.Logger
}

// NewNotifier builds a notifier. A nil sender disables delivery.
func NewNotifier(sender Sender, logg *logger.Logger) *Notifier {
	return &Notifier{sender: sender, logg: logg}
}

// WantsPayout reports whether setting opts into payout mails with a usable address.
func WantsPayout(setting *models.ShopNotificationSetting) bool {
	return setting != nil && setting.PayoutNotification && strings.TrimSpace(setting.Email) != ""
}

// NotifyPayout renders and sends the payout mail for notice.
func (n *Notifier) NotifyPayout(ctx context.Context, setting *models.ShopNotificationSetting, notice PayoutNotice) error {
	if !WantsPayout(setting) {
		return nil
	}
	if n == nil || n.sender == nil {
		if n != nil && n.logg != nil {
			n.logg.Warn(ctx, "notifications.payout_skipped_no_sender")
		}
		return nil
	}
	msg, err := RenderPayout(setting.Email, notice)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

type payoutView struct {
	ShopName      string
	InvoiceNumber string
	PeriodStart   string
	PeriodEnd     string
	AmountLabel   string
	Amount        string
	Fees          string
	Payout        string
	IBAN          string
	InvoiceURL    string
}

// RenderPayout builds the payout mail addressed to to.
func RenderPayout(to string, notice PayoutNotice) (sendgrid.Message, error) {
	if strings.TrimSpace(notice.InvoiceNumber) == "" {
		return sendgrid.Message{}, errors.New("invoice number is required")
	}
	view := payoutView{
		ShopName:      notice.ShopName,
		InvoiceNumber: notice.InvoiceNumber,
		PeriodStart:   notice.PeriodStart.UTC().Format(dateLayout),
		PeriodEnd:     notice.PeriodEnd.UTC().Format(dateLayout),
		AmountLabel:   "Eingelöste Gutscheine",
		Amount:        money.FormatEuro(notice.Amount),
		Fees:          money.FormatEuro(notice.Fees),
		Payout:        money.FormatEuro(notice.Payout),
		InvoiceURL:    notice.InvoiceURL,
	}
	if notice.Kind == enums.InvoiceKindPayment {
		view.AmountLabel = "Verkaufte Gutscheine"
	}
	if notice.IBAN != nil {
		view.IBAN = *notice.IBAN
	}

	var body bytes.Buffer
	if err := payoutTemplate.Execute(&body, view); err != nil {
		return sendgrid.Message{}, fmt.Errorf("render payout mail: %w", err)
	}
	return sendgrid.Message{
		To:      to,
		Subject: fmt.Sprintf("Ihre Abrechnung %s", notice.InvoiceNumber),
		HTML:    body.String(),
	}, nil
}
