package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nishacrest/Beta-test-sub001/api/responses"
	"github.com/nishacrest/Beta-test-sub001/api/validators"
	"github.com/nishacrest/Beta-test-sub001/internal/invoices"
	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
)

const adminBasePath = "/api/admin/v1"

type invoiceCreator func(ctx context.Context, input invoices.CreateInvoiceInput) (*invoices.IssuedInvoice, error)

type invoiceForm struct {
	StartDate     string `form:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `form:"end_date" validate:"required,datetime=2006-01-02"`
	InvoiceNumber string `form:"invoice_number" validate:"required,max=64"`
}

func (f invoiceForm) toInput(shopID uuid.UUID, file []byte) (invoices.CreateInvoiceInput, error) {
	start, err := validators.ParseDate("start_date", f.StartDate)
	if err != nil {
		return invoices.CreateInvoiceInput{}, err
	}
	end, err := validators.ParseDate("end_date", f.EndDate)
	if err != nil {
		return invoices.CreateInvoiceInput{}, err
	}
	return invoices.CreateInvoiceInput{
		ShopID:        shopID,
		StartDate:     start,
		EndDate:       end,
		InvoiceNumber: strings.TrimSpace(f.InvoiceNumber),
		File:          file,
	}, nil
}

// CreateNegotiationInvoice settles a shop's redemptions for a period from a
// multipart form carrying start_date, end_date, invoice_number and the PDF file.
func CreateNegotiationInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("invoice service unavailable", logg)
	}
	return createInvoice(svc.CreateNegotiationInvoice, logg)
}

// CreatePaymentInvoice settles a shop's gift card sales for a period.
func CreatePaymentInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("invoice service unavailable", logg)
	}
	return createInvoice(svc.CreatePaymentInvoice, logg)
}

func createInvoice(create invoiceCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := validators.ParseUUID("shopId", chi.URLParam(r, "shopId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, validators.MaxInvoiceUpload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		form := invoiceForm{
			StartDate:     strings.TrimSpace(r.FormValue("start_date")),
			EndDate:       strings.TrimSpace(r.FormValue("end_date")),
			InvoiceNumber: r.FormValue("invoice_number"),
		}
		if err := validators.ValidateStruct(&form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := validators.FormFile(r, "file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := form.toInput(shopID, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issued, err := create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, invoiceLocation(issued), issued)
	}
}

// NegotiationInvoicePreview returns the printable invoice data without issuing it.
func NegotiationInvoicePreview(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("invoice service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := validators.ParseUUID("shopId", chi.URLParam(r, "shopId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, end, err := requiredRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		data, err := svc.NegotiationInvoiceData(r.Context(), shopID, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}

type invoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	ShopID        uuid.UUID `json:"shop_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Amount        string    `json:"amount"`
	FeeAmount     string    `json:"fee_amount"`
	PayoutAmount  string    `json:"payout_amount"`
	IBAN          *string   `json:"iban,omitempty"`
	InvoicePDFURL string    `json:"invoice_pdf_url"`
	IssuedAt      time.Time `json:"issued_at"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
}

// GetNegotiationInvoice loads an issued negotiation invoice.
func GetNegotiationInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("invoice service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUID("invoiceId", chi.URLParam(r, "invoiceId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.GetNegotiationInvoice(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoiceResponse{
			ID:            invoice.ID,
			ShopID:        invoice.ShopID,
			InvoiceNumber: invoice.InvoiceNumber,
			Amount:        invoice.RedeemedAmount.StringFixed(2),
			FeeAmount:     invoice.FeeAmount.StringFixed(2),
			PayoutAmount:  invoice.PayoutAmount.StringFixed(2),
			IBAN:          invoice.IBAN,
			InvoicePDFURL: invoice.InvoicePDFURL,
			IssuedAt:      invoice.IssuedAt,
			StartDate:     invoice.StartDate,
			EndDate:       invoice.EndDate,
		})
	}
}

// GetPaymentInvoice loads an issued payment invoice.
func GetPaymentInvoice(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("invoice service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUID("invoiceId", chi.URLParam(r, "invoiceId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.GetPaymentInvoice(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoiceResponse{
			ID:            invoice.ID,
			ShopID:        invoice.ShopID,
			InvoiceNumber: invoice.InvoiceNumber,
			Amount:        invoice.TotalAmount.StringFixed(2),
			FeeAmount:     invoice.FeeAmount.StringFixed(2),
			PayoutAmount:  invoice.PayoutAmount.StringFixed(2),
			IBAN:          invoice.IBAN,
			InvoicePDFURL: invoice.InvoicePDFURL,
			IssuedAt:      invoice.IssuedAt,
			StartDate:     invoice.StartDate,
			EndDate:       invoice.EndDate,
		})
	}
}

func requiredRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := validators.ParseQueryDate(r, "start_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := validators.ParseQueryDate(r, "end_date")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start == nil || end == nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "start_date and end_date are required")
	}
	return *start, *end, nil
}

func unavailable(msg string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, msg))
	}
}

func invoiceLocation(issued *invoices.IssuedInvoice) string {
	if issued == nil {
		return ""
	}
	return adminBasePath + "/" + string(issued.Kind) + "-invoices/" + issued.ID.String()
}
