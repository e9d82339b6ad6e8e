package middleware

import (
	"net/http"

	"github.com/fflcommerce/checkout-backend/api/validators"
	"github.com/fflcommerce/checkout-backend/internal/restrictions"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

// VisitorSession resolves the visitor identity cookie, minting a fresh
// token when the cookie is absent or malformed. It also seeds the
// per-request restrictions memo so every lookup within one request hits
// the upstream at most once.
func VisitorSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				if parsed, err := validators.ParseVisitorToken(cookie.Value); err == nil {
					token = parsed
				}
			}
			if token == "" {
				token = session.NewVisitorToken()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithVisitorToken(r.Context(), token)
			ctx = restrictions.WithMemo(ctx)
			if logg != nil {
				ctx = logg.WithVisitorID(ctx, token)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
