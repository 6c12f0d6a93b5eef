package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"invoice_number": "RE-X1-202542"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "RE-X1-202542", body.Data.(map[string]any)["invoice_number"])
}

func TestWriteErrorExposesConflictDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeConflict, "invoice number does not match the next number").
		WithDetails(map[string]any{"expected": "RE-X1-202542"}).
		WithReason("INVOICE_NUMBER_MISMATCH")
	WriteError(context.Background(), nil, w, err)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeConflict), body.Error.Code)
	assert.Equal(t, "invoice number does not match the next number", body.Error.Message)
	details := body.Error.Details.(map[string]any)
	assert.Equal(t, "INVOICE_NUMBER_MISMATCH", details["reason"])
	assert.Equal(t, "RE-X1-202542", details["expected"])
}

func TestWriteErrorKeepsReasonWhenDetailsAreHidden(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.Wrap(pkgerrors.CodeInternal, context.DeadlineExceeded, "invoice creation timed out").
		WithReason("SETTLEMENT_TIMEOUT")
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	WriteError(context.Background(), logg, w, err)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Equal(t, map[string]any{"reason": "SETTLEMENT_TIMEOUT"}, body.Error.Details)
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Nil(t, body.Error.Details)
}

func TestWriteCreatedSetsLocation(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCreated(w, "/api/admin/v1/payment-invoices/42", map[string]string{"kind": "payment"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/admin/v1/payment-invoices/42", w.Header().Get("Location"))
}

func TestWriteErrorMarksRetryableCodes(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeStorage, "upload failed"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeError(t, w)
	assert.True(t, body.Error.Retryable)
	assert.Equal(t, "file storage unavailable", body.Error.Message)

	w = httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
	body = decodeError(t, w)
	assert.False(t, body.Error.Retryable)
	assert.Equal(t, "amount must be positive", body.Error.Message)
}
