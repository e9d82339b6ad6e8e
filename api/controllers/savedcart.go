package controllers

import (
	"context"
	"net/http"

	"github.com/fflcommerce/checkout-backend/api/middleware"
	"github.com/fflcommerce/checkout-backend/api/responses"
	"github.com/fflcommerce/checkout-backend/api/validators"
	"github.com/fflcommerce/checkout-backend/internal/savedcart"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

type saveForLaterRequest struct {
	ItemType string `json:"item_type" validate:"required"`
}

// SaveForLater pulls one bucket of the cart into a Redis bundle so the
// other bucket can check out on its own. The bundle token rides back to
// the browser in a durable cookie so restoration survives the checkout
// session reset at order completion.
func SaveForLater(svc savedcart.Service, cfg config.SavedCartConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "saved-cart service unavailable"))
			return
		}

		var payload saveForLaterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bucket, err := enums.ParseSavedBucket(payload.ItemType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item type"))
			return
		}

		visitorToken := middleware.VisitorTokenFromContext(r.Context())
		result, err := svc.SaveItems(r.Context(), visitorToken, bucket)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, savedCartCookie(cfg, result.Token, int(cfg.TTL.Seconds())))
		responses.WriteSuccess(w, result)
	}
}

type restoreRequest struct {
	Token string `json:"token"`
}

type sessionTokenReader interface {
	Get(ctx context.Context, visitorToken string) (*session.CheckoutState, error)
}

// RestoreSavedCart brings a saved bundle back into the active cart. The
// token may come from the request body, the durable saved-cart cookie, or
// as a last resort the visitor's checkout session mirror. The cookie is
// cleared after any attempt; the service deletes the bundle before
// restoring, so a spent token has no further use.
func RestoreSavedCart(svc savedcart.Service, cfg config.SavedCartConfig, sessions sessionTokenReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "saved-cart service unavailable"))
			return
		}

		var payload restoreRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		visitorToken := middleware.VisitorTokenFromContext(r.Context())
		token := payload.Token
		if token == "" {
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" && sessions != nil {
			if state, err := sessions.Get(r.Context(), visitorToken); err == nil {
				token = state.SavedCartToken
			}
		}

		result, err := svc.RestoreItems(r.Context(), visitorToken, token)
		if token != "" {
			http.SetCookie(w, savedCartCookie(cfg, "", -1))
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func savedCartCookie(cfg config.SavedCartConfig, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
