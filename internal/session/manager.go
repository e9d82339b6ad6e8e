package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/fflcommerce/checkout-backend/pkg/config"
	redisclient "github.com/fflcommerce/checkout-backend/pkg/redis"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(visitorToken string) string
}

// CheckoutState is the per-visitor checkout document held in Redis. It
// carries everything that must survive UI remounts within one checkout
// attempt: the destination-state signal, the sticky dealer lock, the
// selected dealer, the saved-cart token, and the snapshot of the
// customer's true address taken before any dealer mutation.
type CheckoutState struct {
	DestinationState string         `json:"destination_state,omitempty"`
	DealerLock       bool           `json:"dealer_lock"`
	SelectedDealer   *types.Dealer  `json:"selected_dealer,omitempty"`
	SavedCartToken   string         `json:"saved_cart_token,omitempty"`
	AddressSnapshot  *types.Address `json:"address_snapshot,omitempty"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// HasDealer reports whether a dealer selection is currently held.
func (s *CheckoutState) HasDealer() bool {
	return s != nil && s.SelectedDealer != nil && !s.SelectedDealer.IsZero()
}

// Manager stores checkout state per visitor token.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager constructs the checkout session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: client, keyer: client, ttl: cfg.TTL}, nil
}

// Get loads the checkout state for a visitor. A missing document yields a
// fresh zero state rather than an error.
func (m *Manager) Get(ctx context.Context, visitorToken string) (*CheckoutState, error) {
	if strings.TrimSpace(visitorToken) == "" {
		return nil, fmt.Errorf("visitor token is required")
	}
	raw, err := m.store.Get(ctx, m.keyer.SessionKey(visitorToken))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return &CheckoutState{}, nil
		}
		return nil, err
	}
	var state CheckoutState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// corrupt document, start over rather than wedging the checkout
		return &CheckoutState{}, nil
	}
	return &state, nil
}

// Save persists the checkout state under the session TTL.
func (m *Manager) Save(ctx context.Context, visitorToken string, state *CheckoutState) error {
	if strings.TrimSpace(visitorToken) == "" {
		return fmt.Errorf("visitor token is required")
	}
	if state == nil {
		return fmt.Errorf("state is required")
	}
	state.UpdatedAt = time.Now().UTC()
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal checkout state: %w", err)
	}
	return m.store.Set(ctx, m.keyer.SessionKey(visitorToken), string(encoded), m.ttl)
}

// Reset clears the checkout state. Called on the cart-emptied and
// checkout-completed events.
func (m *Manager) Reset(ctx context.Context, visitorToken string) error {
	if strings.TrimSpace(visitorToken) == "" {
		return fmt.Errorf("visitor token is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(visitorToken))
}

// NewVisitorToken produces the opaque browser cookie value identifying a
// visitor session.
func NewVisitorToken() string {
	return uuid.NewString()
}
