package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nishacrest/Beta-test-sub001/api/responses"
	"github.com/nishacrest/Beta-test-sub001/api/validators"
	"github.com/nishacrest/Beta-test-sub001/internal/redemptions"
	"github.com/nishacrest/Beta-test-sub001/pkg/db/models"
	"github.com/nishacrest/Beta-test-sub001/pkg/logger"
	"github.com/nishacrest/Beta-test-sub001/pkg/money"
	"github.com/nishacrest/Beta-test-sub001/pkg/pagination"
)

const maxCommentLength = 500

type redemptionCreateRequest struct {
	GiftCardID string     `json:"gift_card_id" validate:"required,uuid"`
	ShopID     string     `json:"shop_id" validate:"required,uuid"`
	Amount     string     `json:"amount" validate:"required,amount"`
	RedeemedAt *time.Time `json:"redeemed_at"`
	Comment    *string    `json:"comment" validate:"omitempty,max=500"`
}

type redemptionUpdateRequest struct {
	Amount  string  `json:"amount" validate:"required,amount"`
	Comment *string `json:"comment" validate:"omitempty,max=500"`
}

type redemptionResponse struct {
	ID                   uuid.UUID  `json:"id"`
	GiftCardID           uuid.UUID  `json:"gift_card_id"`
	Amount               string     `json:"amount"`
	Fees                 string     `json:"fees"`
	RedeemedShopID       uuid.UUID  `json:"redeemed_shop_id"`
	IssuerShopID         uuid.UUID  `json:"issuer_shop_id"`
	RedeemedDate         time.Time  `json:"redeemed_date"`
	NegotiationInvoiceID *uuid.UUID `json:"negotiation_invoice_id,omitempty"`
	Comment              *string    `json:"comment,omitempty"`
}

func redemptionResponseFromModel(m *models.Redemption) redemptionResponse {
	return redemptionResponse{
		ID:                   m.ID,
		GiftCardID:           m.GiftCardID,
		Amount:               m.Amount.StringFixed(2),
		Fees:                 m.Fees.StringFixed(2),
		RedeemedShopID:       m.RedeemedShopID,
		IssuerShopID:         m.IssuerShopID,
		RedeemedDate:         m.RedeemedDate,
		NegotiationInvoiceID: m.NegotiationInvoiceID,
		Comment:              m.Comment,
	}
}

func sanitizedComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	clean := validators.SanitizeString(*comment, maxCommentLength)
	return &clean
}

// RecordRedemption books a redemption against a gift card at a shop.
func RecordRedemption(svc redemptions.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("redemption service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var payload redemptionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cardID, err := validators.ParseUUID("gift_card_id", payload.GiftCardID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shopID, err := validators.ParseUUID("shop_id", payload.ShopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, _ := money.Parse(payload.Amount)

		input := redemptions.RecordInput{
			GiftCardID: cardID,
			ShopID:     shopID,
			Amount:     amount,
			Comment:    sanitizedComment(payload.Comment),
		}
		if payload.RedeemedAt != nil {
			input.RedeemedAt = *payload.RedeemedAt
		}

		created, err := svc.Record(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, "", redemptionResponseFromModel(created))
	}
}

// UpdateRedemption edits the amount of an unsettled redemption.
func UpdateRedemption(svc redemptions.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("redemption service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUID("redemptionId", chi.URLParam(r, "redemptionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload redemptionUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, _ := money.Parse(payload.Amount)

		updated, err := svc.UpdateAmount(r.Context(), redemptions.UpdateInput{
			ID:      id,
			Amount:  amount,
			Comment: sanitizedComment(payload.Comment),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, redemptionResponseFromModel(updated))
	}
}

// DeleteRedemption removes an unsettled redemption and restores the card balance.
func DeleteRedemption(svc redemptions.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("redemption service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUID("redemptionId", chi.URLParam(r, "redemptionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

// ListRedemptions pages through redemptions. Sorting and filtering only accept
// known column ids: sort_by, desc, filter[code|redeemed_shop|comment].
func ListRedemptions(svc redemptions.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("redemption service unavailable", logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseRedemptionListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseRedemptionListParams(r *http.Request) (redemptions.ListParams, error) {
	var params redemptions.ListParams
	var err error

	if params.RedeemedShopID, err = validators.ParseQueryUUID(r, "redeemed_shop_id"); err != nil {
		return params, err
	}
	if params.IssuerShopID, err = validators.ParseQueryUUID(r, "issuer_shop_id"); err != nil {
		return params, err
	}
	if params.Settled, err = validators.ParseQueryBool(r, "settled"); err != nil {
		return params, err
	}
	if params.From, err = validators.ParseQueryDate(r, "from"); err != nil {
		return params, err
	}
	if params.To, err = validators.ParseQueryDate(r, "to"); err != nil {
		return params, err
	}
	if params.Page, err = validators.ParseQueryInt(r, "page", 1, 1, 1_000_000); err != nil {
		return params, err
	}
	if params.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return params, err
	}
	desc, err := validators.ParseQueryBool(r, "desc")
	if err != nil {
		return params, err
	}
	params.Desc = desc != nil && *desc
	params.SortBy = r.URL.Query().Get("sort_by")
	params.Filters = validators.QueryFilters(r)
	return params, nil
}
