package shops

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
)

// Repository handles shop persistence needed by settlement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindAdmin(ctx context.Context) (*models.Shop, error)
	LockAdmin(ctx context.Context) (*models.Shop, error)
	AdvanceInvoiceCounter(ctx context.Context, adminID uuid.UUID, expected *int64, next int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shop repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var shop models.Shop
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindAdmin(ctx context.Context) (*models.Shop, error) {
	return r.findAdmin(r.db.WithContext(ctx))
}

// LockAdmin loads the platform shop with a row lock held until the transaction ends.
// Every invoice orchestration takes this lock first, which serialises counter use.
func (r *repository) LockAdmin(ctx context.Context) (*models.Shop, error) {
	return r.findAdmin(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}))
}

func (r *repository) findAdmin(query *gorm.DB) (*models.Shop, error) {
	var shop models.Shop
	if err := query.
		Where("is_admin = ?", true).
		Order("created_at ASC").
		First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}

// AdvanceInvoiceCounter moves the admin counter from expected to next. It reports
// false when another writer changed the counter in between.
func (r *repository) AdvanceInvoiceCounter(ctx context.Context, adminID uuid.UUID, expected *int64, next int64) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ? AND is_admin = ?", adminID, true)
	if expected == nil {
		query = query.Where("invoice_reference_number IS NULL")
	} else {
		query = query.Where("invoice_reference_number = ?", *expected)
	}
	result := query.Update("invoice_reference_number", next)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
