package savedcart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/fflcommerce/checkout-backend/internal/classify"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

type bundleStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SavedCartKey(token string) string
}

type cartsRepository interface {
	FindActive(ctx context.Context, visitorToken string) (*models.CartRecord, error)
	EnsureActive(ctx context.Context, visitorToken string) (*models.CartRecord, error)
	RemoveLines(ctx context.Context, cartID uuid.UUID, lineIDs []uuid.UUID) error
	AddLine(ctx context.Context, cartID uuid.UUID, line *models.CartLine) error
}

type productsRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
}

type ordersRepository interface {
	AppendMetadata(ctx context.Context, orderID uuid.UUID, key, value string) error
}

type checkoutSessions interface {
	Get(ctx context.Context, visitorToken string) (*session.CheckoutState, error)
	Save(ctx context.Context, visitorToken string, state *session.CheckoutState) error
}

// OrderMetadataTokenKey is the jsonb key under which a completed order
// records the saved-cart token, so restoration survives session loss.
const OrderMetadataTokenKey = "saved_cart_token"

// SaveResult reports a completed save-for-later split.
type SaveResult struct {
	Token      string `json:"token"`
	SavedCount int    `json:"saved_count"`
	Message    string `json:"message"`
}

// LineFailure explains why one saved line could not be restored.
type LineFailure struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Reason      string `json:"reason"`
}

// RestoreResult reports a restoration attempt. Partial success is normal;
// failures are surfaced per line, never silently dropped.
type RestoreResult struct {
	RestoredCount int           `json:"restored_count"`
	Failed        []LineFailure `json:"failed,omitempty"`
}

// Service implements the saved-cart split-order flow.
type Service interface {
	SaveItems(ctx context.Context, visitorToken string, bucket enums.SavedBucket) (*SaveResult, error)
	SaveTokenToOrder(ctx context.Context, orderID uuid.UUID, token string) error
	RestoreItems(ctx context.Context, visitorToken, token string) (*RestoreResult, error)
}

type service struct {
	store    bundleStore
	carts    cartsRepository
	products productsRepository
	orders   ordersRepository
	sessions checkoutSessions
	analyzer classify.Analyzer
	ttl      time.Duration
	logg     *logger.Logger
}

// NewService wires the saved-cart manager.
func NewService(store bundleStore, carts cartsRepository, products productsRepository, orders ordersRepository, sessions checkoutSessions, analyzer classify.Analyzer, cfg config.SavedCartConfig, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("bundle store required")
	}
	if carts == nil {
		return nil, fmt.Errorf("carts repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &service{
		store:    store,
		carts:    carts,
		products: products,
		orders:   orders,
		sessions: sessions,
		analyzer: analyzer,
		ttl:      ttl,
		logg:     logg,
	}, nil
}

// SaveItems moves the requested bucket's lines out of the live cart into a
// tokenized bundle and mirrors the token into the checkout session.
func (s *service) SaveItems(ctx context.Context, visitorToken string, bucket enums.SavedBucket) (*SaveResult, error) {
	if !bucket.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown item type")
	}

	cart, err := s.carts.FindActive(ctx, visitorToken)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	classification := s.analyzer.Analyze(ctx, cart.Lines)
	selected := bucketLines(classification, bucket)
	if len(selected) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no %s items to save", bucket))
	}

	bundle := Bundle{
		Token:   uuid.NewString(),
		Bucket:  bucket,
		SavedAt: time.Now().UTC(),
		Items:   make([]SavedLine, 0, len(selected)),
	}
	lineIDs := make([]uuid.UUID, 0, len(selected))
	for _, line := range selected {
		lineIDs = append(lineIDs, line.ID)
		bundle.Items = append(bundle.Items, SavedLine{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			VariationID:    line.VariationID,
			VariationAttrs: line.VariationAttrs,
			CustomData:     line.CustomData,
			ProductName:    line.ProductName,
		})
	}

	encoded, err := json.Marshal(bundle)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal saved-cart bundle")
	}
	key := s.store.SavedCartKey(bundle.Token)
	if err := s.store.Set(ctx, key, string(encoded), s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store saved-cart bundle")
	}

	if err := s.carts.RemoveLines(ctx, cart.ID, lineIDs); err != nil {
		// roll the bundle back so the lines are not duplicated later
		if delErr := s.store.Del(ctx, key); delErr != nil {
			s.logg.Error(ctx, "orphaned saved-cart bundle after failed line removal", delErr)
		}
		return nil, err
	}

	state, err := s.sessions.Get(ctx, visitorToken)
	if err != nil {
		return nil, err
	}
	state.SavedCartToken = bundle.Token
	if err := s.sessions.Save(ctx, visitorToken, state); err != nil {
		return nil, err
	}

	return &SaveResult{
		Token:      bundle.Token,
		SavedCount: len(bundle.Items),
		Message:    fmt.Sprintf("%d item(s) saved for a separate order. They will be restored after this checkout completes.", len(bundle.Items)),
	}, nil
}

// SaveTokenToOrder copies the bundle token into the completed order's
// durable metadata. Cookies and sessions are not guaranteed to survive to
// the confirmation page.
func (s *service) SaveTokenToOrder(ctx context.Context, orderID uuid.UUID, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.orders.AppendMetadata(ctx, orderID, OrderMetadataTokenKey, token)
}

// RestoreItems re-adds a bundle's lines into the visitor's cart. The bundle
// is deleted before any line is touched so a second attempt with the same
// token finds nothing. Per-line failures are collected, not fatal.
func (s *service) RestoreItems(ctx context.Context, visitorToken, token string) (*RestoreResult, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "saved-cart token is required")
	}

	bundle, err := s.takeBundle(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.EnsureActive(ctx, visitorToken)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	var restoreErrs error
	for _, item := range bundle.Items {
		if reason := s.restoreLine(ctx, cart.ID, item); reason != "" {
			result.Failed = append(result.Failed, LineFailure{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Reason:      reason,
			})
			restoreErrs = multierr.Append(restoreErrs, fmt.Errorf("product %d: %s", item.ProductID, reason))
			continue
		}
		result.RestoredCount++
	}
	if restoreErrs != nil {
		s.logg.Warn(ctx, "saved-cart restore completed with failures: "+restoreErrs.Error())
	}

	state, err := s.sessions.Get(ctx, visitorToken)
	if err == nil && state.SavedCartToken == trimmed {
		state.SavedCartToken = ""
		if saveErr := s.sessions.Save(ctx, visitorToken, state); saveErr != nil {
			s.logg.Error(ctx, "clearing saved-cart token from session failed", saveErr)
		}
	}

	return result, nil
}

// takeBundle loads and immediately deletes the bundle. Deletion-on-use is
// the double-restore guard; the 24h TTL is the backstop for abandoned
// bundles.
func (s *service) takeBundle(ctx context.Context, token string) (*Bundle, error) {
	key := s.store.SavedCartKey(token)
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "saved cart not found or already restored")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load saved-cart bundle")
	}
	if err := s.store.Del(ctx, key); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume saved-cart bundle")
	}

	var bundle Bundle
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode saved-cart bundle")
	}
	return &bundle, nil
}

func (s *service) restoreLine(ctx context.Context, cartID uuid.UUID, item SavedLine) string {
	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil || product == nil {
		return "product no longer exists"
	}
	if !product.IsActive || !product.IsPurchasable {
		return "product is no longer purchasable"
	}
	if product.StockQty <= 0 {
		return "product is out of stock"
	}

	quantity := item.Quantity
	if quantity > product.StockQty {
		quantity = product.StockQty
	}

	line := &models.CartLine{
		CartID:            cartID,
		ProductID:         item.ProductID,
		CartItemKey:       uuid.NewString(),
		Quantity:          quantity,
		VariationID:       item.VariationID,
		VariationAttrs:    item.VariationAttrs,
		CustomData:        item.CustomData,
		ProductName:       product.Name,
		UnitPriceCents:    product.PriceCents,
		LineSubtotalCents: product.PriceCents * quantity,
	}
	if err := s.carts.AddLine(ctx, cartID, line); err != nil {
		return "could not re-add to cart"
	}
	return ""
}

func bucketLines(c classify.Classification, bucket enums.SavedBucket) []models.CartLine {
	switch bucket {
	case enums.SavedBucketFFL:
		combined := make([]models.CartLine, 0, len(c.Firearms)+len(c.Ammo))
		combined = append(combined, c.Firearms...)
		combined = append(combined, c.Ammo...)
		return combined
	case enums.SavedBucketRegular:
		return c.Regular
	default:
		return nil
	}
}
