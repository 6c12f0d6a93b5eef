package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nishacrest/Beta-test-sub001/internal/invoices"
	"github.com/nishacrest/Beta-test-sub001/internal/purchases"
	"github.com/nishacrest/Beta-test-sub001/internal/redemptions"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	data, ok := body.Data.(map[string]any)
	require.True(t, ok, "data is not an object: %#v", body.Data)
	return data
}

func decodeAPIError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

type stubInvoiceService struct {
	negotiationFn func(ctx context.Context, input invoices.CreateInvoiceInput) (*invoices.IssuedInvoice, error)
	paymentFn     func(ctx context.Context, input invoices.CreateInvoiceInput) (*invoices.IssuedInvoice, error)
	dataFn        func(ctx context.Context, shopID uuid.UUID, start, end time.Time) (*invoices.InvoiceData, error)
	getNegFn      func(ctx context.Context, id uuid.UUID) (*models.NegotiationInvoice, error)
	getPayFn      func(ctx context.Context, id uuid.UUID) (*models.PaymentInvoice, error)
}

func (s *stubInvoiceService) CreateNegotiationInvoice(ctx context.Context, input invoices.CreateInvoiceInput) (*invoices.IssuedInvoice, error) {
	return s.negotiationFn(ctx, input)
}

func (s *stubInvoiceService) CreatePaymentInvoice(ctx context.Context, input invoices.CreateInvoiceInput) (*invoices.IssuedInvoice, error) {
	return s.paymentFn(ctx, input)
}

func (s *stubInvoiceService) NegotiationInvoiceData(ctx context.Context, shopID uuid.UUID, start, end time.Time) (*invoices.InvoiceData, error) {
	return s.dataFn(ctx, shopID, start, end)
}

func (s *stubInvoiceService) GetNegotiationInvoice(ctx context.Context, id uuid.UUID) (*models.NegotiationInvoice, error) {
	return s.getNegFn(ctx, id)
}

func (s *stubInvoiceService) GetPaymentInvoice(ctx context.Context, id uuid.UUID) (*models.PaymentInvoice, error) {
	return s.getPayFn(ctx, id)
}

type stubRedemptionService struct {
	recordFn func(ctx context.Context, input redemptions.RecordInput) (*models.Redemption, error)
	updateFn func(ctx context.Context, input redemptions.UpdateInput) (*models.Redemption, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	listFn   func(ctx context.Context, params redemptions.ListParams) (*redemptions.ListResult, error)
}

func (s *stubRedemptionService) Record(ctx context.Context, input redemptions.RecordInput) (*models.Redemption, error) {
	return s.recordFn(ctx, input)
}

func (s *stubRedemptionService) UpdateAmount(ctx context.Context, input redemptions.UpdateInput) (*models.Redemption, error) {
	return s.updateFn(ctx, input)
}

func (s *stubRedemptionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func (s *stubRedemptionService) List(ctx context.Context, params redemptions.ListParams) (*redemptions.ListResult, error) {
	return s.listFn(ctx, params)
}

type stubPurchaseService struct {
	recordFn func(ctx context.Context, input purchases.RecordInput) (*models.Purchase, error)
}

func (s *stubPurchaseService) Record(ctx context.Context, input purchases.RecordInput) (*models.Purchase, error) {
	return s.recordFn(ctx, input)
}
