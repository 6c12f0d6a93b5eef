package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nishacrest/Beta-test-sub001/api/responses"
	"github.com/nishacrest/Beta-test-sub001/api/validators"
	"github.com/nishacrest/Beta-test-sub001/internal/purchases"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/money"
)

type purchaseCreateRequest struct {
	GiftCardID  string     `json:"gift_card_id" validate:"required,uuid"`
	Amount      string     `json:"amount" validate:"required,amount"`
	PurchasedAt *time.Time `json:"purchased_at"`
}

type purchaseResponse struct {
	ID               uuid.UUID  `json:"id"`
	GiftCardID       uuid.UUID  `json:"gift_card_id"`
	ShopID           uuid.UUID  `json:"shop_id"`
	Amount           string     `json:"amount"`
	Fees             string     `json:"fees"`
	PurchasedAt      time.Time  `json:"purchased_at"`
	PaymentInvoiceID *uuid.UUID `json:"payment_invoice_id,omitempty"`
}

// RecordPurchase books the sale of a gift card for later payment settlement.
func RecordPurchase(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("purchase service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var payload purchaseCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cardID, err := validators.ParseUUID("gift_card_id", payload.GiftCardID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, _ := money.Parse(payload.Amount)

		input := purchases.RecordInput{GiftCardID: cardID, Amount: amount}
		if payload.PurchasedAt != nil {
			input.PurchasedAt = *payload.PurchasedAt
		}
		created, err := svc.Record(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, "", purchaseResponse{
			ID:               created.ID,
			GiftCardID:       created.GiftCardID,
			ShopID:           created.ShopID,
			Amount:           created.Amount.StringFixed(2),
			Fees:             created.Fees.StringFixed(2),
			PurchasedAt:      created.PurchasedAt,
			PaymentInvoiceID: created.PaymentInvoiceID,
		})
	}
}
