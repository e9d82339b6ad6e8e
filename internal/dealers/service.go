package dealers

import (
	"context"
	"fmt"
	"time"

	"github.com/fflcommerce/checkout-backend/internal/gating"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

type ordersRepository interface {
	FindPendingByVisitor(ctx context.Context, visitorToken string) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
}

type profilesRepository interface {
	Find(ctx context.Context, visitorToken string) (*models.VisitorProfile, error)
	Upsert(ctx context.Context, profile *models.VisitorProfile) error
}

type checkoutSessions interface {
	Get(ctx context.Context, visitorToken string) (*session.CheckoutState, error)
	Save(ctx context.Context, visitorToken string, state *session.CheckoutState) error
}

type gatingService interface {
	Evaluate(ctx context.Context, visitorToken string) (gating.Decision, error)
}

// Service implements the dealer selection protocol: parsing picker
// messages, applying the dealer's address to the in-progress order, and
// reversing that mutation.
type Service interface {
	ParseMessage(origin string, payload []byte) (*Message, error)
	Apply(ctx context.Context, visitorToken string, dealer types.Dealer) (gating.Decision, error)
	Clear(ctx context.Context, visitorToken string) error
	RestoreProfileAddress(ctx context.Context, visitorToken string) error
}

type service struct {
	allowedOrigins map[string]struct{}
	orders         ordersRepository
	profiles       profilesRepository
	sessions       checkoutSessions
	gate           gatingService
	logg           *logger.Logger
}

// NewService wires the dealer protocol handler from the dealer directory
// configuration.
func NewService(cfg config.DealerConfig, orders ordersRepository, profiles profilesRepository, sessions checkoutSessions, gate gatingService, logg *logger.Logger) (Service, error) {
	origins := cfg.NormalizedOrigins()
	if len(origins) == 0 {
		return nil, fmt.Errorf("at least one allowed origin required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if gate == nil {
		return nil, fmt.Errorf("gating service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[normalizeOrigin(origin)] = struct{}{}
	}
	return &service{
		allowedOrigins: allowed,
		orders:         orders,
		profiles:       profiles,
		sessions:       sessions,
		gate:           gate,
		logg:           logg,
	}, nil
}

// ParseMessage validates the origin and decodes one picker message.
// Messages from unlisted origins return ErrOriginNotAllowed and must be
// dropped without acknowledgement.
func (s *service) ParseMessage(origin string, payload []byte) (*Message, error) {
	return parseMessage(s.allowedOrigins, origin, payload)
}

// Apply stores the selected dealer and rewrites the in-progress order's
// shipping address with the dealer's, keeping the customer's own name. The
// customer's true address is snapshotted on the first mutation only so the
// reverse mutation can put everything back.
func (s *service) Apply(ctx context.Context, visitorToken string, dealer types.Dealer) (gating.Decision, error) {
	if dealer.IsZero() {
		return gating.Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "dealer is required")
	}
	if dealer.LicenseExpired(time.Now()) {
		return gating.Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "dealer license has expired")
	}

	state, err := s.sessions.Get(ctx, visitorToken)
	if err != nil {
		return gating.Decision{}, err
	}

	order, err := s.orders.FindPendingByVisitor(ctx, visitorToken)
	if err != nil {
		return gating.Decision{}, err
	}

	if state.AddressSnapshot == nil {
		state.AddressSnapshot = s.trueAddress(ctx, visitorToken, order)
	}

	dealerAddress := dealer.Address()
	if state.AddressSnapshot != nil {
		dealerAddress.FirstName = state.AddressSnapshot.FirstName
		dealerAddress.LastName = state.AddressSnapshot.LastName
	}

	if order != nil {
		order.ShippingAddress = &dealerAddress
		order.DealerLicenseID = &dealer.LicenseID
		order.DealerLicenseExpiration = dealer.LicenseExpiration
		dealerUUID := dealer.DealerUUID
		order.DealerUUID = &dealerUUID
		if err := s.orders.Update(ctx, order); err != nil {
			return gating.Decision{}, err
		}
	}

	// the host platform persists the latest shipping address at the
	// account level too; that copy is what RestoreProfileAddress undoes
	profileAddress := dealerAddress
	if err := s.profiles.Upsert(ctx, &models.VisitorProfile{
		VisitorToken:           visitorToken,
		DefaultShippingAddress: &profileAddress,
	}); err != nil {
		return gating.Decision{}, err
	}

	selected := dealer
	state.SelectedDealer = &selected
	if err := s.sessions.Save(ctx, visitorToken, state); err != nil {
		return gating.Decision{}, err
	}

	decision, err := s.gate.Evaluate(ctx, visitorToken)
	if err != nil {
		return gating.Decision{}, err
	}
	if decision.State == enums.GatingStateAmmoOnlyRestricted && !state.DealerLock {
		state.DealerLock = true
		if err := s.sessions.Save(ctx, visitorToken, state); err != nil {
			return gating.Decision{}, err
		}
	}

	return decision, nil
}

// Clear reverses the dealer mutation: the snapshotted customer address goes
// back onto the order, the profile, and the session, and the lock resets.
func (s *service) Clear(ctx context.Context, visitorToken string) error {
	state, err := s.sessions.Get(ctx, visitorToken)
	if err != nil {
		return err
	}

	order, err := s.orders.FindPendingByVisitor(ctx, visitorToken)
	if err != nil {
		return err
	}
	if order != nil {
		if state.AddressSnapshot != nil {
			restored := *state.AddressSnapshot
			order.ShippingAddress = &restored
		}
		order.DealerLicenseID = nil
		order.DealerLicenseExpiration = nil
		order.DealerUUID = nil
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
	}

	if err := s.restoreProfile(ctx, visitorToken, state); err != nil {
		return err
	}

	state.SelectedDealer = nil
	state.DealerLock = false
	state.AddressSnapshot = nil
	return s.sessions.Save(ctx, visitorToken, state)
}

// RestoreProfileAddress puts the customer's true address back into durable
// profile storage after an FFL order completes. The completed order keeps
// the dealer address it shipped to.
func (s *service) RestoreProfileAddress(ctx context.Context, visitorToken string) error {
	state, err := s.sessions.Get(ctx, visitorToken)
	if err != nil {
		return err
	}
	return s.restoreProfile(ctx, visitorToken, state)
}

func (s *service) restoreProfile(ctx context.Context, visitorToken string, state *session.CheckoutState) error {
	if state.AddressSnapshot == nil {
		return nil
	}
	restored := *state.AddressSnapshot
	return s.profiles.Upsert(ctx, &models.VisitorProfile{
		VisitorToken:           visitorToken,
		DefaultShippingAddress: &restored,
	})
}

// trueAddress resolves the customer's own address before any dealer
// mutation, preferring the in-progress order over the stored profile.
func (s *service) trueAddress(ctx context.Context, visitorToken string, order *models.Order) *types.Address {
	if order != nil && order.ShippingAddress != nil && !order.ShippingAddress.IsZero() {
		snapshot := *order.ShippingAddress
		return &snapshot
	}
	profile, err := s.profiles.Find(ctx, visitorToken)
	if err != nil {
		s.logg.Warn(ctx, "loading profile for address snapshot failed: "+err.Error())
		return nil
	}
	if profile != nil && profile.DefaultShippingAddress != nil {
		snapshot := *profile.DefaultShippingAddress
		return &snapshot
	}
	return nil
}
