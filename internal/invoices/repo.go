package invoices

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
)

// Repository persists negotiation and payment invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateNegotiation(ctx context.Context, invoice *models.NegotiationInvoice) error
	CreatePayment(ctx context.Context, invoice *models.PaymentInvoice) error
	NumberTaken(ctx context.Context, number string) (bool, error)
	FindNegotiationByID(ctx context.Context, id uuid.UUID) (*models.NegotiationInvoice, error)
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.PaymentInvoice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoice repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateNegotiation(ctx context.Context, invoice *models.NegotiationInvoice) error {
	if invoice == nil {
		return errors.New("invoice is required")
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) CreatePayment(ctx context.Context, invoice *models.PaymentInvoice) error {
	if invoice == nil {
		return errors.New("invoice is required")
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}

// NumberTaken checks both invoice tables, soft deleted rows included, since numbers
// share one platform sequence and are never reissued.
func (r *repository) NumberTaken(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.NegotiationInvoice{}).
		Where("invoice_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.PaymentInvoice{}).
		Where("invoice_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindNegotiationByID(ctx context.Context, id uuid.UUID) (*models.NegotiationInvoice, error) {
	var invoice models.NegotiationInvoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.PaymentInvoice, error) {
	var invoice models.PaymentInvoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}
