package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fflcommerce/checkout-backend/api/controllers"
	"github.com/fflcommerce/checkout-backend/api/middleware"
	"github.com/fflcommerce/checkout-backend/internal/checkout"
	"github.com/fflcommerce/checkout-backend/internal/dealers"
	"github.com/fflcommerce/checkout-backend/internal/gating"
	"github.com/fflcommerce/checkout-backend/internal/savedcart"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
	redisclient "github.com/fflcommerce/checkout-backend/pkg/redis"
)

// Pinger reports dependency health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionReader exposes the checkout session lookup the restore endpoint
// uses for its token fallback.
type SessionReader interface {
	Get(ctx context.Context, visitorToken string) (*session.CheckoutState, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redisclient.Client,
	dbPing Pinger,
	redisPing Pinger,
	checkoutService checkout.Service,
	gatingService gating.Service,
	dealerService dealers.Service,
	savedCartService savedcart.Service,
	sessions SessionReader,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Dealer.NormalizedOrigins()),
	)

	var nonces *middleware.Nonces
	var limiter middleware.RateLimiter
	if redisClient != nil {
		nonces = middleware.NewNonces(redisClient, cfg.Session.NonceTTL)
		limiter = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbPing, redisPing, logg))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	// order-processed is a host-platform webhook, not a browser call, so
	// it runs outside the visitor session group
	r.Post("/api/v1/orders/{orderID}/processed", controllers.OrderProcessed(checkoutService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.VisitorSession(cfg.Session, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(checkoutService, nonces, logg))
			r.Put("/", controllers.CartReplace(checkoutService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/gate", controllers.GateEvaluate(gatingService, logg))
			r.Post("/destination-state", controllers.DestinationState(checkoutService, logg))
			r.Post("/", controllers.PlaceOrder(checkoutService, logg))
		})

		r.Route("/dealer", func(r chi.Router) {
			r.Post("/messages", controllers.DealerMessage(dealerService, logg))
			r.Delete("/selection", controllers.DealerClear(dealerService, logg))
		})

		r.With(middleware.RequireNonce(nonces, controllers.SaveForLaterAction, logg)).
			Post("/save-for-later", controllers.SaveForLater(savedCartService, cfg.SavedCart, logg))
		r.With(middleware.RestoreRateLimit(cfg.RestoreLimit, limiter, logg)).
			Post("/saved-cart/restore", controllers.RestoreSavedCart(savedCartService, cfg.SavedCart, sessions, logg))
	})

	return r
}
