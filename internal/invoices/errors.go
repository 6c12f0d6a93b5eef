package invoices

import (
	"context"
	"errors"

	"github.com/nishacrest/Beta-test-sub001/pkg/db"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
)

// Reasons carried in error details so clients can tell conflicts apart.
const (
	ReasonFileRequired      = "INVOICE_FILE_REQUIRED"
	ReasonFileNotPDF        = "INVOICE_FILE_NOT_PDF"
	ReasonShopNotFound      = "SHOP_NOT_FOUND"
	ReasonCounterUnset      = "INVOICE_COUNTER_UNSET"
	ReasonNumberMismatch    = "INVOICE_NUMBER_MISMATCH"
	ReasonDuplicateNumber   = "DUPLICATE_INVOICE_NUMBER"
	ReasonNoRedemptions     = "NO_REDEMPTIONS_FOR_PERIOD"
	ReasonNoPurchases       = "NO_PURCHASES_FOR_PERIOD"
	ReasonUploadFailed      = "STORAGE_UPLOAD_FAILED"
	ReasonCounterRace       = "INVOICE_COUNTER_CHANGED"
	ReasonLinkConflict      = "SETTLEMENT_ROWS_CLAIMED"
	ReasonSettlementTimeout = "SETTLEMENT_TIMEOUT"
	ReasonSettlementBusy    = "SETTLEMENT_IN_PROGRESS"
)

func duplicateNumber(number string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "invoice number already issued").
		WithReason(ReasonDuplicateNumber).
		WithDetails(map[string]any{"invoice_number": number})
}

// classify maps any orchestration failure onto the public error taxonomy. A lock
// timeout at any step means another settlement holds the rows.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invoice creation timed out").WithReason(ReasonSettlementTimeout)
	}
	if db.IsLockTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "another invoice is being issued").WithReason(ReasonSettlementBusy)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invoice creation failed")
}
