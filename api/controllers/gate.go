package controllers

import (
	"net/http"

	"github.com/fflcommerce/checkout-backend/api/middleware"
	"github.com/fflcommerce/checkout-backend/api/responses"
	"github.com/fflcommerce/checkout-backend/api/validators"
	"github.com/fflcommerce/checkout-backend/internal/checkout"
	"github.com/fflcommerce/checkout-backend/internal/gating"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

// GateEvaluate returns the current gating decision without mutating
// anything. The storefront polls this between cart edits.
func GateEvaluate(svc gating.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gating service unavailable"))
			return
		}

		visitorToken := middleware.VisitorTokenFromContext(r.Context())
		decision, err := svc.Evaluate(r.Context(), visitorToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, decision)
	}
}

type destinationStateRequest struct {
	State string `json:"state" validate:"required,min=2,max=10"`
}

// DestinationState records the shipping destination state and returns the
// re-evaluated gating decision.
func DestinationState(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload destinationStateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorToken := middleware.VisitorTokenFromContext(r.Context())
		decision, err := svc.SetDestinationState(r.Context(), visitorToken, payload.State)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, decision)
	}
}
