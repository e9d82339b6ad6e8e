package gating

import (
	"context"
	"fmt"

	"github.com/fflcommerce/checkout-backend/internal/classify"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
	"github.com/fflcommerce/checkout-backend/pkg/metrics"
)

type cartReader interface {
	ActiveLines(ctx context.Context, visitorToken string) ([]models.CartLine, error)
}

type orderDealerResetter interface {
	ClearDealerFields(ctx context.Context, visitorToken string) error
}

type checkoutSessions interface {
	Get(ctx context.Context, visitorToken string) (*session.CheckoutState, error)
	Save(ctx context.Context, visitorToken string, state *session.CheckoutState) error
}

// Service evaluates the checkout gate and performs the authoritative
// server-side validation before an order is placed.
type Service interface {
	Evaluate(ctx context.Context, visitorToken string) (Decision, error)
	AuthorizeCheckout(ctx context.Context, visitorToken string, order *models.Order) (Decision, error)
}

type service struct {
	analyzer classify.Analyzer
	sessions checkoutSessions
	carts    cartReader
	orders   orderDealerResetter
	metrics  *metrics.GatingMetrics
	logg     *logger.Logger
}

// NewService wires the gating service. The metrics receiver may be nil.
func NewService(analyzer classify.Analyzer, sessions checkoutSessions, carts cartReader, orders orderDealerResetter, m *metrics.GatingMetrics, logg *logger.Logger) (Service, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		analyzer: analyzer,
		sessions: sessions,
		carts:    carts,
		orders:   orders,
		metrics:  m,
		logg:     logg,
	}, nil
}

// Evaluate recomputes the gating decision for the visitor's current cart
// and applies its side effects: a dealer selected but never locked in is
// cleared once the destination turns unrestricted.
func (s *service) Evaluate(ctx context.Context, visitorToken string) (Decision, error) {
	state, err := s.sessions.Get(ctx, visitorToken)
	if err != nil {
		return Decision{}, err
	}
	lines, err := s.carts.ActiveLines(ctx, visitorToken)
	if err != nil {
		return Decision{}, err
	}

	classification := s.analyzer.Analyze(ctx, lines)
	decision := Decide(classification, state.DestinationState, state.DealerLock)
	s.metrics.IncDecision(decision.State.String(), decision.Outcome.String())

	if !state.DealerLock && state.HasDealer() && !decision.RequiresDealer {
		// pre-lock window: the user changed state before confirming a
		// dealer, so the tentative selection is discarded
		state.SelectedDealer = nil
		if err := s.orders.ClearDealerFields(ctx, visitorToken); err != nil {
			s.logg.Error(ctx, "clearing stale dealer fields failed", err)
		}
		if err := s.sessions.Save(ctx, visitorToken, state); err != nil {
			return Decision{}, err
		}
	}

	return decision, nil
}

// AuthorizeCheckout is the authoritative gate run immediately before the
// order is persisted as placed. The decision is re-derived from stored
// cart and restriction data; a client-supplied "dealer selected" flag is
// never trusted. When a dealer is required, the order itself must carry a
// license value.
func (s *service) AuthorizeCheckout(ctx context.Context, visitorToken string, order *models.Order) (Decision, error) {
	decision, err := s.Evaluate(ctx, visitorToken)
	if err != nil {
		return Decision{}, err
	}

	if decision.Blocked {
		s.metrics.IncAuthorization("denied")
		return decision, pkgerrors.New(pkgerrors.CodeStateConflict, decision.Reason)
	}
	if decision.Outcome == enums.GatingOutcomeRequiresState {
		s.metrics.IncAuthorization("denied")
		return decision, pkgerrors.New(pkgerrors.CodeStateConflict, "a destination state is required before checkout")
	}
	if decision.RequiresDealer {
		if order == nil || !order.HasDealerLicense() {
			s.metrics.IncAuthorization("denied")
			return decision, pkgerrors.New(pkgerrors.CodeStateConflict, "a licensed dealer must be selected before checkout")
		}
	}

	s.metrics.IncAuthorization("allowed")
	return decision, nil
}
