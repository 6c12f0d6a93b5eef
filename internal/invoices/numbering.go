package invoices

import (
	"fmt"
	"strings"
	"time"

	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
)

const numberPrefix = "RE"

// Candidate is the next invoice number together with the counter value it consumes.
type Candidate struct {
	Number  string
	Counter int64
	// Previous is the counter value the candidate was derived from.
	Previous int64
}

// Allocator derives invoice numbers from the platform shop's counter. It never writes.
type Allocator struct{}

// Next returns RE-{studio}-{year}{counter+1} for admin at now.
func (Allocator) Next(admin *models.Shop, now time.Time) (Candidate, error) {
	if admin == nil {
		return Candidate{}, pkgerrors.New(pkgerrors.CodeNotFound, "platform shop not found").WithReason(ReasonShopNotFound)
	}
	if admin.InvoiceReferenceNumber == nil {
		return Candidate{}, pkgerrors.New(pkgerrors.CodeConfiguration, "invoice reference number is not initialised on the platform shop").
			WithReason(ReasonCounterUnset)
	}
	previous := *admin.InvoiceReferenceNumber
	next := previous + 1
	return Candidate{
		Number:   FormatNumber(admin.StudioID, now.UTC().Year(), next),
		Counter:  next,
		Previous: previous,
	}, nil
}

// FormatNumber renders the invoice number text. Year and counter are not separated.
func FormatNumber(studioID string, year int, counter int64) string {
	return fmt.Sprintf("%s-%s-%04d%d", numberPrefix, strings.TrimSpace(studioID), year, counter)
}

// Reconcile fails with a conflict when the caller's number is not the current candidate.
func (c Candidate) Reconcile(expected string) error {
	if strings.TrimSpace(expected) == c.Number {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "invoice number does not match the next available number").
		WithReason(ReasonNumberMismatch).
		WithDetails(map[string]any{"expected": c.Number})
}
