package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/fflcommerce/checkout-backend/api/responses"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

const NonceHeader = "X-FFLG-Nonce"

type nonceStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	NonceKey(visitorToken, action string) string
}

// Nonces issues and verifies single-use action tokens. Mutating cart
// actions triggered from rendered pages carry one so a stale or forged
// form post cannot replay the action.
type Nonces struct {
	store nonceStore
	ttl   time.Duration
}

// NewNonces builds the nonce issuer backed by Redis.
func NewNonces(store nonceStore, ttl time.Duration) *Nonces {
	return &Nonces{store: store, ttl: ttl}
}

// Issue mints a nonce for the visitor and action, replacing any prior one.
func (n *Nonces) Issue(ctx context.Context, visitorToken, action string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)
	if err := n.store.Set(ctx, n.store.NonceKey(visitorToken, action), value, n.ttl); err != nil {
		return "", err
	}
	return value, nil
}

// Consume verifies the presented nonce and burns it. A mismatch leaves the
// stored nonce untouched.
func (n *Nonces) Consume(ctx context.Context, visitorToken, action, presented string) error {
	if presented == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing nonce")
	}
	key := n.store.NonceKey(visitorToken, action)
	stored, err := n.store.Get(ctx, key)
	if err != nil || stored == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "nonce expired")
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return pkgerrors.New(pkgerrors.CodeForbidden, "nonce mismatch")
	}
	return n.store.Del(ctx, key)
}

// RequireNonce guards an endpoint with a single-use nonce check.
func RequireNonce(nonces *Nonces, action string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if nonces == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := VisitorTokenFromContext(ctx)
			if err := nonces.Consume(ctx, token, action, r.Header.Get(NonceHeader)); err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "action", action), "nonce.rejected")
				}
				responses.WriteError(ctx, nil, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
