package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fflcommerce/checkout-backend/internal/carts"
	"github.com/fflcommerce/checkout-backend/internal/classify"
	"github.com/fflcommerce/checkout-backend/internal/dealers"
	"github.com/fflcommerce/checkout-backend/internal/gating"
	"github.com/fflcommerce/checkout-backend/internal/orders"
	"github.com/fflcommerce/checkout-backend/internal/savedcart"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type checkoutSessions interface {
	Get(ctx context.Context, visitorToken string) (*session.CheckoutState, error)
	Save(ctx context.Context, visitorToken string, state *session.CheckoutState) error
	Reset(ctx context.Context, visitorToken string) error
}

// PlaceOrderInput carries the address payload submitted at checkout.
type PlaceOrderInput struct {
	ShippingAddress *types.Address `json:"shipping_address,omitempty"`
	BillingAddress  *types.Address `json:"billing_address,omitempty"`
}

// CartView is the combined payload the storefront renders: the cart, its
// classification summary, and the current gating decision.
type CartView struct {
	Cart             *models.CartRecord `json:"cart"`
	Classification   BucketSummary      `json:"classification"`
	Decision         gating.Decision    `json:"decision"`
	SavedCartToken   string             `json:"saved_cart_token,omitempty"`
	DestinationState string             `json:"destination_state,omitempty"`
}

// BucketSummary is the classification reduced to what the UI needs.
type BucketSummary struct {
	FirearmCount int      `json:"firearm_count"`
	AmmoCount    int      `json:"ammo_count"`
	RegularCount int      `json:"regular_count"`
	APIError     bool     `json:"api_error"`
	MixedBlocked bool     `json:"mixed_blocked"`
	AmmoStates   []string `json:"ammo_restricted_states,omitempty"`
}

// Service orchestrates the checkout lifecycle hooks: cart evaluation,
// order placement behind the authoritative gate, and post-purchase
// completion.
type Service interface {
	EvaluateCart(ctx context.Context, visitorToken string) (*CartView, error)
	ReplaceCart(ctx context.Context, visitorToken string, lines []models.CartLine) (*CartView, error)
	SetDestinationState(ctx context.Context, visitorToken, stateCode string) (gating.Decision, error)
	PlaceOrder(ctx context.Context, visitorToken string, input PlaceOrderInput) (*models.Order, error)
	CompleteOrder(ctx context.Context, orderID uuid.UUID) error
}

// Params collects the orchestrator's dependencies.
type Params struct {
	DB       txRunner
	Carts    *carts.Repository
	Orders   *orders.Repository
	Sessions checkoutSessions
	Analyzer classify.Analyzer
	Gate     gating.Service
	Dealers  dealers.Service
	Saved    savedcart.Service
	Logger   *logger.Logger
}

type service struct {
	Params
}

// NewService wires the checkout orchestrator.
func NewService(p Params) (Service, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if p.Carts == nil {
		return nil, fmt.Errorf("carts repository required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if p.Analyzer == nil {
		return nil, fmt.Errorf("analyzer required")
	}
	if p.Gate == nil {
		return nil, fmt.Errorf("gating service required")
	}
	if p.Dealers == nil {
		return nil, fmt.Errorf("dealer service required")
	}
	if p.Saved == nil {
		return nil, fmt.Errorf("saved-cart service required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{Params: p}, nil
}

// EvaluateCart runs the classification and gating pipeline for the
// cart-view-render and checkout-init hooks.
func (s *service) EvaluateCart(ctx context.Context, visitorToken string) (*CartView, error) {
	cart, err := s.Carts.EnsureActive(ctx, visitorToken)
	if err != nil {
		return nil, err
	}
	state, err := s.Sessions.Get(ctx, visitorToken)
	if err != nil {
		return nil, err
	}

	classification := s.Analyzer.Analyze(ctx, cart.Lines)
	decision, err := s.Gate.Evaluate(ctx, visitorToken)
	if err != nil {
		return nil, err
	}

	return &CartView{
		Cart:             cart,
		Classification:   summarize(classification),
		Decision:         decision,
		SavedCartToken:   state.SavedCartToken,
		DestinationState: state.DestinationState,
	}, nil
}

// ReplaceCart swaps the cart contents and re-enters the state graph fresh.
// Emptying the cart is a reset event for the checkout session.
func (s *service) ReplaceCart(ctx context.Context, visitorToken string, lines []models.CartLine) (*CartView, error) {
	if _, err := s.Carts.ReplaceLines(ctx, visitorToken, lines); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		if err := s.Sessions.Reset(ctx, visitorToken); err != nil {
			s.Logger.Error(ctx, "resetting session on emptied cart failed", err)
		}
	}
	return s.EvaluateCart(ctx, visitorToken)
}

// SetDestinationState records the destination-state signal from address
// edits and re-evaluates the gate.
func (s *service) SetDestinationState(ctx context.Context, visitorToken, stateCode string) (gating.Decision, error) {
	normalized := types.NormalizeStateCode(stateCode)
	state, err := s.Sessions.Get(ctx, visitorToken)
	if err != nil {
		return gating.Decision{}, err
	}
	state.DestinationState = normalized
	if err := s.Sessions.Save(ctx, visitorToken, state); err != nil {
		return gating.Decision{}, err
	}
	return s.Gate.Evaluate(ctx, visitorToken)
}

// PlaceOrder runs the authoritative gate and then converts the cart into a
// placed order inside one transaction. A blocked cart produces no order
// side effects at all.
func (s *service) PlaceOrder(ctx context.Context, visitorToken string, input PlaceOrderInput) (*models.Order, error) {
	cart, err := s.Carts.FindActive(ctx, visitorToken)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order, err := s.Orders.FindPendingByVisitor(ctx, visitorToken)
	if err != nil {
		return nil, err
	}
	isNew := order == nil
	if isNew {
		order = &models.Order{
			ID:           uuid.New(),
			VisitorToken: visitorToken,
			CartID:       cart.ID,
			Status:       enums.OrderStatusPending,
		}
	}

	// a dealer-routed order keeps the dealer's shipping address; the
	// customer's submitted address only lands when no dealer is attached
	if input.ShippingAddress != nil && !order.HasDealerLicense() {
		order.ShippingAddress = input.ShippingAddress
		if _, err := s.SetDestinationState(ctx, visitorToken, input.ShippingAddress.State); err != nil {
			return nil, err
		}
	}
	if input.BillingAddress != nil {
		order.BillingAddress = input.BillingAddress
	}

	if _, err := s.Gate.AuthorizeCheckout(ctx, visitorToken, order); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.DB.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.Orders.WithTx(tx)
		cartsTx := s.Carts.WithTx(tx)

		order.CartID = cart.ID
		order.SubtotalCents = cart.SubtotalCents
		order.TotalCents = cart.TotalCents
		order.PlacedAt = &now
		order.Status = enums.OrderStatusPlaced
		if isNew {
			if _, err := ordersTx.Create(ctx, order); err != nil {
				return err
			}
		} else if err := ordersTx.Update(ctx, order); err != nil {
			return err
		}
		return cartsTx.MarkConverted(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info(s.Logger.WithOrderID(ctx, order.ID.String()), "order placed")
	return order, nil
}

// CompleteOrder handles the order-processed hook: stamp the order, copy the
// saved-cart token into durable order metadata, restore the customer's
// profile address if a dealer mutation touched it, and reset the checkout
// session.
func (s *service) CompleteOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.Orders.FindByID(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	visitorToken := order.VisitorToken

	if err := s.Orders.MarkProcessed(ctx, orderID, time.Now().UTC()); err != nil {
		return err
	}

	state, err := s.Sessions.Get(ctx, visitorToken)
	if err != nil {
		return err
	}
	if state.SavedCartToken != "" {
		if err := s.Saved.SaveTokenToOrder(ctx, orderID, state.SavedCartToken); err != nil {
			s.Logger.Error(ctx, "persisting saved-cart token to order failed", err)
		}
	}

	if err := s.Dealers.RestoreProfileAddress(ctx, visitorToken); err != nil {
		s.Logger.Error(ctx, "restoring profile address failed", err)
	}

	// checkout-complete reset keeps the saved-cart token alive in the
	// browser cookie; everything session-side starts fresh
	if err := s.Sessions.Reset(ctx, visitorToken); err != nil {
		return err
	}

	s.Logger.Info(s.Logger.WithOrderID(ctx, orderID.String()), "order completed")
	return nil
}

func summarize(c classify.Classification) BucketSummary {
	return BucketSummary{
		FirearmCount: len(c.Firearms),
		AmmoCount:    len(c.Ammo),
		RegularCount: len(c.Regular),
		APIError:     c.APIError,
		MixedBlocked: c.IsMixedFFLRegular(),
		AmmoStates:   c.AmmoRestrictedStates(),
	}
}
