package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/internal/notifications"
	"github.com/nishacrest/Beta-test-sub001/internal/purchases"
	"github.com/nishacrest/Beta-test-sub001/internal/redemptions"
	"github.com/nishacrest/Beta-test-sub001/internal/shops"
	"github.com/nishacrest/Beta-test-sub001/pkg/db"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/metrics"
	"github.com/nishacrest/Beta-test-sub001/pkg/money"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

const (
	pdfContentType      = "application/pdf"
	defaultTimeout      = 30 * time.Second
	notificationTimeout = 15 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BlobStore keeps invoice documents.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, key, contentType string) (string, error)
	PublicURL(raw string) string
}

type payoutNotifier interface {
	NotifyPayout(ctx context.Context, setting *models.ShopNotificationSetting, notice notifications.PayoutNotice) error
}

// Service issues settlement invoices.
type Service interface {
	CreateNegotiationInvoice(ctx context.Context, input CreateInvoiceInput) (*IssuedInvoice, error)
	CreatePaymentInvoice(ctx context.Context, input CreateInvoiceInput) (*IssuedInvoice, error)
	NegotiationInvoiceData(ctx context.Context, shopID uuid.UUID, start, end time.Time) (*InvoiceData, error)
	GetNegotiationInvoice(ctx context.Context, id uuid.UUID) (*models.NegotiationInvoice, error)
	GetPaymentInvoice(ctx context.Context, id uuid.UUID) (*models.PaymentInvoice, error)
}

// CreateInvoiceInput is the caller's request to settle a shop for a period.
type CreateInvoiceInput struct {
	ShopID        uuid.UUID
	StartDate     time.Time
	EndDate       time.Time
	InvoiceNumber string
	File          []byte
}

// IssuedInvoice describes a committed invoice.
type IssuedInvoice struct {
	Kind          enums.InvoiceKind `json:"kind"`
	ID            uuid.UUID         `json:"id"`
	ShopID        uuid.UUID         `json:"shop_id"`
	InvoiceNumber string            `json:"invoice_number"`
	Amount        decimal.Decimal   `json:"amount"`
	FeeAmount     decimal.Decimal   `json:"fee_amount"`
	PayoutAmount  decimal.Decimal   `json:"payout_amount"`
	InvoicePDFURL string            `json:"invoice_pdf_url"`
	IssuedAt      time.Time         `json:"issued_at"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
	Settled       int               `json:"settled_count"`
}

// ServiceParams bundles the dependencies of the invoice service.
type ServiceParams struct {
	Tx          txRunner
	Shops       shops.Repository
	Invoices    Repository
	Redemptions redemptions.Repository
	Purchases   purchases.Repository
	Settings    notifications.Repository
	Blobs       BlobStore
	Notifier    payoutNotifier
	Metrics     *metrics.SettlementMetrics
	Logger      *logger.Logger
	Timeout     time.Duration
	TaxRate     decimal.Decimal
	Now         func() time.Time
}

type service struct {
	tx          txRunner
	shops       shops.Repository
	invoices    Repository
	settings    notifications.Repository
	blobs       BlobStore
	notifier    payoutNotifier
	metrics     *metrics.SettlementMetrics
	logg        *logger.Logger
	allocator   Allocator
	negotiation redemptionSource
	payment     purchaseSource
	timeout     time.Duration
	taxRate     decimal.Decimal
	now         func() time.Time
}

// NewService builds the invoice orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if params.Redemptions == nil {
		return nil, fmt.Errorf("redemption repository required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("notification settings repository required")
	}
	if params.Blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	redemptionAgg, err := redemptions.NewAggregator(params.Redemptions)
	if err != nil {
		return nil, err
	}
	purchaseAgg, err := purchases.NewAggregator(params.Purchases)
	if err != nil {
		return nil, err
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NewNotifier(nil, params.Logger)
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:          params.Tx,
		shops:       params.Shops,
		invoices:    params.Invoices,
		settings:    params.Settings,
		blobs:       params.Blobs,
		notifier:    notifier,
		metrics:     params.Metrics,
		logg:        params.Logger,
		negotiation: redemptionSource{aggregator: redemptionAgg, repo: params.Redemptions},
		payment:     purchaseSource{aggregator: purchaseAgg, repo: params.Purchases},
		timeout:     timeout,
		taxRate:     params.TaxRate,
		now:         now,
	}, nil
}

func (s *service) CreateNegotiationInvoice(ctx context.Context, input CreateInvoiceInput) (*IssuedInvoice, error) {
	return s.create(ctx, s.negotiation, input)
}

func (s *service) CreatePaymentInvoice(ctx context.Context, input CreateInvoiceInput) (*IssuedInvoice, error) {
	return s.create(ctx, s.payment, input)
}

func (s *service) GetNegotiationInvoice(ctx context.Context, id uuid.UUID) (*models.NegotiationInvoice, error) {
	invoice, err := s.invoices.FindNegotiationByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func (s *service) GetPaymentInvoice(ctx context.Context, id uuid.UUID) (*models.PaymentInvoice, error) {
	invoice, err := s.invoices.FindPaymentByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func (s *service) create(ctx context.Context, src settlementSource, input CreateInvoiceInput) (*IssuedInvoice, error) {
	kind := src.kind().String()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"invoice_kind":   kind,
		"shop_id":        input.ShopID.String(),
		"invoice_number": input.InvoiceNumber,
	})
	started := time.Now()

	issued, err := s.orchestrate(ctx, src, input)
	s.metrics.ObserveDuration(kind, time.Since(started))
	if err != nil {
		s.metrics.IncFailed(kind, string(pkgerrors.CodeOf(err)))
		if pkgerrors.IsServerFault(err) {
			s.logg.Error(ctx, "settlement.invoice_failed", err)
		} else {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "settlement.invoice_rejected")
		}
		return nil, err
	}
	s.metrics.IncCreated(kind)
	s.logg.Info(s.logg.WithField(ctx, "invoice_id", issued.ID.String()), "settlement.invoice_created")
	return issued, nil
}

func validateInput(input CreateInvoiceInput) (types.Period, error) {
	if input.ShopID == uuid.Nil {
		return types.Period{}, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	period, err := types.NewPeriod(input.StartDate, input.EndDate)
	if err != nil {
		return types.Period{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if strings.TrimSpace(input.InvoiceNumber) == "" {
		return types.Period{}, pkgerrors.New(pkgerrors.CodeValidation, "invoice number required")
	}
	if len(input.File) == 0 {
		return types.Period{}, pkgerrors.New(pkgerrors.CodeValidation, "invoice file required").WithReason(ReasonFileRequired)
	}
	if !mimetype.Detect(input.File).Is(pdfContentType) {
		return types.Period{}, pkgerrors.New(pkgerrors.CodeValidation, "invoice file must be a PDF").WithReason(ReasonFileNotPDF)
	}
	return period, nil
}

// ObjectKey is the storage key of an invoice document.
func ObjectKey(kind enums.InvoiceKind, number string) string {
	return fmt.Sprintf("invoices/%s/%s.pdf", kind, number)
}

// orchestrate runs the whole settlement in one transaction. Any failure rolls back
// the invoice row, the row links and the counter advance together.
func (s *service) orchestrate(ctx context.Context, src settlementSource, input CreateInvoiceInput) (*IssuedInvoice, error) {
	period, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		issued      *IssuedInvoice
		billed      *models.Shop
		setting     *models.ShopNotificationSetting
		uploadedKey string
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		shopRepo := s.shops.WithTx(tx)
		invoiceRepo := s.invoices.WithTx(tx)

		admin, err := shopRepo.LockAdmin(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform shop")
		}
		if admin == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "platform shop not found").WithReason(ReasonShopNotFound)
		}

		issuedAt := s.now().UTC()
		candidate, err := s.allocator.Next(admin, issuedAt)
		if err != nil {
			return err
		}
		if err := candidate.Reconcile(input.InvoiceNumber); err != nil {
			return err
		}
		taken, err := invoiceRepo.NumberTaken(ctx, candidate.Number)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invoice number")
		}
		if taken {
			return duplicateNumber(candidate.Number)
		}

		billed, err = shopRepo.FindByID(ctx, input.ShopID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
		}
		if billed == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found").WithReason(ReasonShopNotFound)
		}

		setting, err = s.settings.WithTx(tx).FindByShopID(ctx, billed.ID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "settlement.notification_settings_unavailable")
			setting = nil
		}

		rows, err := src.collect(ctx, tx, period, billed, admin)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate settlement rows")
		}
		if len(rows.ids) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "nothing to settle for the selected period").WithReason(src.emptyReason())
		}

		key := ObjectKey(src.kind(), candidate.Number)
		rawURL, err := s.blobs.Upload(ctx, input.File, key, pdfContentType)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "upload invoice document").WithReason(ReasonUploadFailed)
		}
		uploadedKey = key

		d := draft{
			ShopID:   billed.ID,
			Number:   candidate.Number,
			Amount:   money.Round2(rows.amount),
			Fees:     money.Round2(rows.fees),
			Payout:   money.Round2(rows.payout),
			IBAN:     billed.IBAN,
			URL:      s.blobs.PublicURL(rawURL),
			IssuedAt: issuedAt,
			Period:   period,
		}
		invoiceID, err := src.persist(ctx, invoiceRepo, d)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateNumber(candidate.Number)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist invoice")
		}

		claimed, err := src.link(ctx, tx, rows.ids, invoiceID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link settled rows")
		}
		if claimed != int64(len(rows.ids)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "settlement rows were claimed by another invoice").WithReason(ReasonLinkConflict)
		}

		advanced, err := shopRepo.AdvanceInvoiceCounter(ctx, admin.ID, admin.InvoiceReferenceNumber, candidate.Counter)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance invoice counter")
		}
		if !advanced {
			return pkgerrors.New(pkgerrors.CodeConflict, "invoice counter changed concurrently").WithReason(ReasonCounterRace)
		}

		issued = &IssuedInvoice{
			Kind:          src.kind(),
			ID:            invoiceID,
			ShopID:        billed.ID,
			InvoiceNumber: d.Number,
			Amount:        d.Amount,
			FeeAmount:     d.Fees,
			PayoutAmount:  d.Payout,
			InvoicePDFURL: d.URL,
			IssuedAt:      d.IssuedAt,
			StartDate:     period.Start,
			EndDate:       period.End,
			Settled:       len(rows.ids),
		}
		return nil
	})
	if err != nil {
		if uploadedKey != "" {
			s.logg.Warn(s.logg.WithField(ctx, "object_key", uploadedKey), "settlement.orphaned_upload")
		}
		return nil, classify(err)
	}

	s.notify(ctx, setting, billed, issued)
	return issued, nil
}

// notify runs after commit. Failures are logged and never undo the invoice.
func (s *service) notify(ctx context.Context, setting *models.ShopNotificationSetting, billed *models.Shop, issued *IssuedInvoice) {
	if !notifications.WantsPayout(setting) {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
	defer cancel()

	err := s.notifier.NotifyPayout(notifyCtx, setting, notifications.PayoutNotice{
		Kind:          issued.Kind,
		ShopName:      billed.Name,
		InvoiceNumber: issued.InvoiceNumber,
		PeriodStart:   issued.StartDate,
		PeriodEnd:     issued.EndDate,
		Amount:        issued.Amount,
		Fees:          issued.FeeAmount,
		Payout:        issued.PayoutAmount,
		IBAN:          billed.IBAN,
		InvoiceURL:    issued.InvoicePDFURL,
	})
	if err != nil {
		s.logg.Error(ctx, "settlement.notification_failed", err)
	}
}
