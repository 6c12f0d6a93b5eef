package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishacrest/Beta-test-sub001/internal/invoices"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/enums"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
)

func invoiceUpload(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile("file", "invoice.pdf")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/shops/x/negotiation-invoices", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateNegotiationInvoiceParsesForm(t *testing.T) {
	shopID := uuid.New()
	var got invoices.CreateInvoiceInput
	svc := &stubInvoiceService{
		negotiationFn: func(_ context.Context, input invoices.CreateInvoiceInput) (*invoices.IssuedInvoice, error) {
			got = input
			return &invoices.IssuedInvoice{
				Kind:          enums.InvoiceKindNegotiation,
				ID:            uuid.New(),
				ShopID:        input.ShopID,
				InvoiceNumber: input.InvoiceNumber,
				Amount:        decimal.RequireFromString("20.01"),
				FeeAmount:     decimal.RequireFromString("0.01"),
				PayoutAmount:  decimal.RequireFromString("20.00"),
				Settled:       2,
			}, nil
		},
	}

	req := invoiceUpload(t, map[string]string{
		"start_date":     "2025-05-01",
		"end_date":       "2025-05-31",
		"invoice_number": " RE-X1-202542 ",
	}, []byte("%PDF-1.4"))
	req = withURLParams(req, map[string]string{"shopId": shopID.String()})
	w := httptest.NewRecorder()

	CreateNegotiationInvoice(svc, testLogger()).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/api/admin/v1/negotiation-invoices/"))
	assert.Equal(t, shopID, got.ShopID)
	assert.Equal(t, "RE-X1-202542", got.InvoiceNumber)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), got.StartDate)
	assert.Equal(t, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), got.EndDate)
	assert.Equal(t, []byte("%PDF-1.4"), got.File)

	data := decodeData(t, w)
	assert.Equal(t, "RE-X1-202542", data["invoice_number"])
	assert.Equal(t, "20", data["payout_amount"])
	assert.EqualValues(t, 2, data["settled_count"])
}

func TestCreateInvoiceRejectsMissingFields(t *testing.T) {
	called := false
	svc := &stubInvoiceService{
		paymentFn: func(context.Context, invoices.CreateInvoiceInput) (*invoices.IssuedInvoice, error) {
			called = true
			return nil, nil
		},
	}
	req := invoiceUpload(t, map[string]string{"start_date": "2025-05-01"}, []byte("pdf"))
	req = withURLParams(req, map[string]string{"shopId": uuid.NewString()})
	w := httptest.NewRecorder()

	CreatePaymentInvoice(svc, testLogger()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
	apiErr := decodeAPIError(t, w)
	assert.Equal(t, string(pkgerrors.CodeValidation), apiErr.Code)
	details := apiErr.Details.(map[string]any)
	assert.Contains(t, details, "end_date")
	assert.Contains(t, details, "invoice_number")
}

func TestCreateInvoiceRejectsBadShopID(t *testing.T) {
	req := invoiceUpload(t, nil, nil)
	req = withURLParams(req, map[string]string{"shopId": "not-a-uuid"})
	w := httptest.NewRecorder()

	CreateNegotiationInvoice(&stubInvoiceService{}, testLogger()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateInvoiceSurfacesNumberMismatch(t *testing.T) {
	svc := &stubInvoiceService{
		negotiationFn: func(context.Context, invoices.CreateInvoiceInput) (*invoices.IssuedInvoice, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice number is stale").
				WithDetails(map[string]any{"expected": "RE-X1-202543"}).
				WithReason("INVOICE_NUMBER_MISMATCH")
		},
	}
	req := invoiceUpload(t, map[string]string{
		"start_date":     "2025-05-01",
		"end_date":       "2025-05-31",
		"invoice_number": "RE-X1-202542",
	}, []byte("pdf"))
	req = withURLParams(req, map[string]string{"shopId": uuid.NewString()})
	w := httptest.NewRecorder()

	CreateNegotiationInvoice(svc, testLogger()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	apiErr := decodeAPIError(t, w)
	details := apiErr.Details.(map[string]any)
	assert.Equal(t, "INVOICE_NUMBER_MISMATCH", details["reason"])
	assert.Equal(t, "RE-X1-202543", details["expected"])
}

func TestNegotiationInvoicePreviewRequiresRange(t *testing.T) {
	svc := &stubInvoiceService{
		dataFn: func(context.Context, uuid.UUID, time.Time, time.Time) (*invoices.InvoiceData, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/preview?start_date=2025-05-01", nil)
	req = withURLParams(req, map[string]string{"shopId": uuid.NewString()})
	w := httptest.NewRecorder()

	NegotiationInvoicePreview(svc, testLogger()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNegotiationInvoicePreview(t *testing.T) {
	shopID := uuid.New()
	svc := &stubInvoiceService{
		dataFn: func(_ context.Context, id uuid.UUID, start, end time.Time) (*invoices.InvoiceData, error) {
			assert.Equal(t, shopID, id)
			assert.Equal(t, 1, start.Day())
			assert.Equal(t, 31, end.Day())
			return &invoices.InvoiceData{InvoiceNumber: "RE-X1-202542", TotalPayout: "1.222,60 €"}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/preview?start_date=2025-05-01&end_date=2025-05-31", nil)
	req = withURLParams(req, map[string]string{"shopId": shopID.String()})
	w := httptest.NewRecorder()

	NegotiationInvoicePreview(svc, testLogger()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "1.222,60 €", data["total_payout"])
}

func TestGetInvoices(t *testing.T) {
	negID := uuid.New()
	svc := &stubInvoiceService{
		getNegFn: func(_ context.Context, id uuid.UUID) (*models.NegotiationInvoice, error) {
			return &models.NegotiationInvoice{
				ID:             id,
				InvoiceNumber:  "RE-X1-202542",
				RedeemedAmount: decimal.RequireFromString("20.01"),
				FeeAmount:      decimal.RequireFromString("0.01"),
				PayoutAmount:   decimal.RequireFromString("20"),
			}, nil
		},
		getPayFn: func(context.Context, uuid.UUID) (*models.PaymentInvoice, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		},
	}

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"invoiceId": negID.String()})
	w := httptest.NewRecorder()
	GetNegotiationInvoice(svc, testLogger()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, negID.String(), data["id"])
	assert.Equal(t, "20.01", data["amount"])
	assert.Equal(t, "20.00", data["payout_amount"])

	req = withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"invoiceId": uuid.NewString()})
	w = httptest.NewRecorder()
	GetPaymentInvoice(svc, testLogger()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandlersWithoutService(t *testing.T) {
	w := httptest.NewRecorder()
	GetPaymentInvoice(nil, testLogger()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
