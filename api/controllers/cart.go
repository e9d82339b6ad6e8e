package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fflcommerce/checkout-backend/api/middleware"
	"github.com/fflcommerce/checkout-backend/api/responses"
	"github.com/fflcommerce/checkout-backend/api/validators"
	"github.com/fflcommerce/checkout-backend/internal/checkout"
	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

// SaveForLaterAction names the nonce scope for the split-cart buttons.
const SaveForLaterAction = "save_for_later"

type cartViewResponse struct {
	*checkout.CartView
	SaveForLaterNonce string `json:"save_for_later_nonce,omitempty"`
}

// CartGet renders the visitor's cart with classification and gating state.
// It also issues the nonce the save-for-later buttons must echo back.
func CartGet(svc checkout.Service, nonces *middleware.Nonces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		visitorToken := middleware.VisitorTokenFromContext(r.Context())
		view, err := svc.EvaluateCart(r.Context(), visitorToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := cartViewResponse{CartView: view}
		if nonces != nil {
			if nonce, err := nonces.Issue(r.Context(), visitorToken, SaveForLaterAction); err == nil {
				resp.SaveForLaterNonce = nonce
			} else if logg != nil {
				logg.Error(r.Context(), "issuing save-for-later nonce failed", err)
			}
		}

		responses.WriteSuccess(w, resp)
	}
}

type replaceCartRequest struct {
	Items []cartLinePayload `json:"items" validate:"dive"`
}

type cartLinePayload struct {
	ProductID      int64          `json:"product_id" validate:"required,min=1"`
	CartItemKey    string         `json:"cart_item_key"`
	Quantity       int            `json:"quantity" validate:"required,min=1"`
	VariationID    int64          `json:"variation_id"`
	VariationAttrs types.Metadata `json:"variation_attrs,omitempty"`
	CustomData     types.Metadata `json:"custom_data,omitempty"`
	ProductName    string         `json:"product_name" validate:"required"`
	UnitPriceCents int            `json:"unit_price_cents" validate:"min=0"`
}

func (r replaceCartRequest) toLines() []models.CartLine {
	lines := make([]models.CartLine, len(r.Items))
	for i, item := range r.Items {
		key := item.CartItemKey
		if key == "" {
			key = uuid.NewString()
		}
		lines[i] = models.CartLine{
			ProductID:         item.ProductID,
			CartItemKey:       key,
			Quantity:          item.Quantity,
			VariationID:       item.VariationID,
			VariationAttrs:    item.VariationAttrs,
			CustomData:        item.CustomData,
			ProductName:       item.ProductName,
			UnitPriceCents:    item.UnitPriceCents,
			LineSubtotalCents: item.UnitPriceCents * item.Quantity,
		}
	}
	return lines
}

// CartReplace swaps the cart contents wholesale. The host storefront owns
// add/remove UX and pushes the resulting cart here.
func CartReplace(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload replaceCartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorToken := middleware.VisitorTokenFromContext(r.Context())
		view, err := svc.ReplaceCart(r.Context(), visitorToken, payload.toLines())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartViewResponse{CartView: view})
	}
}
