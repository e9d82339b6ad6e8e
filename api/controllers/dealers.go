package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/fflcommerce/checkout-backend/api/middleware"
	"github.com/fflcommerce/checkout-backend/api/responses"
	"github.com/fflcommerce/checkout-backend/internal/dealers"
	"github.com/fflcommerce/checkout-backend/internal/gating"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

const dealerMessageMaxBytes = 64 << 10

type dealerMessageResponse struct {
	Applied  bool             `json:"applied"`
	Closed   bool             `json:"closed"`
	Decision *gating.Decision `json:"decision,omitempty"`
}

// DealerMessage ingests a postMessage payload relayed from the embedded
// dealer picker. The browser Origin header is the authenticity signal; the
// body is the untrusted message envelope.
func DealerMessage(svc dealers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dealer service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, dealerMessageMaxBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading message body"))
			return
		}

		msg, err := svc.ParseMessage(r.Header.Get("Origin"), body)
		if err != nil {
			// an unlisted origin is dropped without acknowledgement; a
			// distinguishing status would leak the allow-list
			if errors.Is(err, dealers.ErrOriginNotAllowed) {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "origin", r.Header.Get("Origin")), "dealer.message.origin_dropped")
				}
				responses.WriteSuccess(w, dealerMessageResponse{})
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dealer message"))
			return
		}

		switch msg.Type {
		case dealers.MessageCloseModal:
			responses.WriteSuccess(w, dealerMessageResponse{Closed: true})
		case dealers.MessageDealerUpdate:
			visitorToken := middleware.VisitorTokenFromContext(r.Context())
			decision, err := svc.Apply(r.Context(), visitorToken, *msg.Dealer)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, dealerMessageResponse{Applied: true, Decision: &decision})
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown message type"))
		}
	}
}

// DealerClear drops the visitor's dealer selection and restores the
// pre-dealer addresses.
func DealerClear(svc dealers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dealer service unavailable"))
			return
		}

		visitorToken := middleware.VisitorTokenFromContext(r.Context())
		if err := svc.Clear(r.Context(), visitorToken); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"cleared": true})
	}
}
