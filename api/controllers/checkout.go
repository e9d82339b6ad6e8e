package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fflcommerce/checkout-backend/api/middleware"
	"github.com/fflcommerce/checkout-backend/api/responses"
	"github.com/fflcommerce/checkout-backend/api/validators"
	"github.com/fflcommerce/checkout-backend/internal/checkout"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

// PlaceOrder runs the authoritative gate and converts the cart into a
// placed order.
func PlaceOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkout.PlaceOrderInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorToken := middleware.VisitorTokenFromContext(r.Context())
		order, err := svc.PlaceOrder(r.Context(), visitorToken, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderProcessed is the host platform's order-completed webhook. It
// finalizes the checkout session for the order's visitor.
func OrderProcessed(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		if err := svc.CompleteOrder(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"processed": true})
	}
}
