package invoices

import (
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
)

func counter(v int64) *int64 { return &v }

func TestAllocatorNext(t *testing.T) {
	admin := &models.Shop{StudioID: "X1", InvoiceReferenceNumber: counter(41)}
	now := time.Date(2025, time.November, 3, 10, 0, 0, 0, time.UTC)

	first, err := Allocator{}.Next(admin, now)
	require.NoError(t, err)
	assert.Equal(t, "RE-X1-202542", first.Number)
	assert.Equal(t, int64(42), first.Counter)
	assert.Equal(t, int64(41), first.Previous)

	second, err := Allocator{}.Next(admin, now)
	require.NoError(t, err)
	assert.Equal(t, first, second, "allocation must not consume the counter")
}

func TestAllocatorNextUsesCurrentYearAndRawCounter(t *testing.T) {
	admin := &models.Shop{StudioID: "AB", InvoiceReferenceNumber: counter(0)}
	got, err := Allocator{}.Next(admin, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "RE-AB-20261", got.Number)

	admin.InvoiceReferenceNumber = counter(1234)
	got, err = Allocator{}.Next(admin, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "RE-AB-20261235", got.Number)
}

func TestAllocatorNextRequiresCounter(t *testing.T) {
	_, err := Allocator{}.Next(&models.Shop{StudioID: "X1"}, time.Now())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConfiguration, typed.Code())

	_, err = Allocator{}.Next(nil, time.Now())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCandidateReconcile(t *testing.T) {
	candidate := Candidate{Number: "RE-X1-202542", Counter: 42, Previous: 41}

	require.NoError(t, candidate.Reconcile("RE-X1-202542"))
	require.NoError(t, candidate.Reconcile(" RE-X1-202542 "))

	err := candidate.Reconcile("RE-X1-202541")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, ReasonNumberMismatch, typed.Reason())
	assert.True(t, stdErrors.Is(err, pkgerrors.New(pkgerrors.CodeConflict, "").WithReason(ReasonNumberMismatch)))
	assert.False(t, stdErrors.Is(err, pkgerrors.New(pkgerrors.CodeConflict, "").WithReason(ReasonDuplicateNumber)))
	assert.Equal(t, map[string]any{"expected": "RE-X1-202542", "reason": ReasonNumberMismatch}, typed.Details())
}

func TestDuplicateNumberCarriesReason(t *testing.T) {
	typed := pkgerrors.As(duplicateNumber("RE-X1-202542"))
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, ReasonDuplicateNumber, typed.Reason())
	assert.Equal(t, map[string]any{"invoice_number": "RE-X1-202542", "reason": ReasonDuplicateNumber}, typed.Details())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "RE-S-20257", FormatNumber(" S ", 2025, 7))
}
