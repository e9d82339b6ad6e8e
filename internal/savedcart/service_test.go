package savedcart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/fflcommerce/checkout-backend/internal/classify"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

type mockBundleStore struct {
	data map[string]string
}

func newMockBundleStore() *mockBundleStore {
	return &mockBundleStore{data: map[string]string{}}
}

func (m *mockBundleStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (m *mockBundleStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *mockBundleStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockBundleStore) SavedCartKey(token string) string {
	return "fflg:savedcart:" + token
}

type mockCarts struct {
	cart    *models.CartRecord
	removed []uuid.UUID
	added   []models.CartLine
}

func (m *mockCarts) FindActive(_ context.Context, _ string) (*models.CartRecord, error) {
	return m.cart, nil
}

func (m *mockCarts) EnsureActive(_ context.Context, _ string) (*models.CartRecord, error) {
	if m.cart == nil {
		m.cart = &models.CartRecord{ID: uuid.New(), Status: enums.CartStatusActive}
	}
	return m.cart, nil
}

func (m *mockCarts) RemoveLines(_ context.Context, _ uuid.UUID, lineIDs []uuid.UUID) error {
	m.removed = append(m.removed, lineIDs...)
	return nil
}

func (m *mockCarts) AddLine(_ context.Context, _ uuid.UUID, line *models.CartLine) error {
	m.added = append(m.added, *line)
	return nil
}

type mockProducts struct {
	products map[int64]*models.Product
}

func (m *mockProducts) FindByID(_ context.Context, id int64) (*models.Product, error) {
	return m.products[id], nil
}

type mockOrders struct {
	metadata map[string]string
}

func (m *mockOrders) AppendMetadata(_ context.Context, _ uuid.UUID, key, value string) error {
	if m.metadata == nil {
		m.metadata = map[string]string{}
	}
	m.metadata[key] = value
	return nil
}

type mockSessions struct {
	state *session.CheckoutState
}

func (m *mockSessions) Get(_ context.Context, _ string) (*session.CheckoutState, error) {
	if m.state == nil {
		m.state = &session.CheckoutState{}
	}
	return m.state, nil
}

func (m *mockSessions) Save(_ context.Context, _ string, state *session.CheckoutState) error {
	m.state = state
	return nil
}

type bucketAnalyzer struct{}

// products 1-99 firearm, 100-199 ammo, 200+ regular
func (bucketAnalyzer) Analyze(_ context.Context, lines []models.CartLine) classify.Classification {
	var firearms, ammo, regular []models.CartLine
	for _, line := range lines {
		switch {
		case line.ProductID < 100:
			firearms = append(firearms, line)
		case line.ProductID < 200:
			ammo = append(ammo, line)
		default:
			regular = append(regular, line)
		}
	}
	return classify.NewClassification(firearms, ammo, regular, nil, false)
}

type fixture struct {
	svc      Service
	store    *mockBundleStore
	carts    *mockCarts
	orders   *mockOrders
	sessions *mockSessions
}

func newFixture(t *testing.T, cart *models.CartRecord, products map[int64]*models.Product) *fixture {
	t.Helper()
	store := newMockBundleStore()
	carts := &mockCarts{cart: cart}
	orders := &mockOrders{}
	sessions := &mockSessions{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(store, carts, &mockProducts{products: products}, orders, sessions, bucketAnalyzer{}, config.SavedCartConfig{TTL: 24 * time.Hour}, logg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &fixture{svc: svc, store: store, carts: carts, orders: orders, sessions: sessions}
}

func cartWith(lines ...models.CartLine) *models.CartRecord {
	cart := &models.CartRecord{ID: uuid.New(), Status: enums.CartStatusActive}
	cart.Lines = lines
	return cart
}

func cartLine(productID int64, qty int) models.CartLine {
	return models.CartLine{
		ID:          uuid.New(),
		ProductID:   productID,
		CartItemKey: uuid.NewString(),
		Quantity:    qty,
		ProductName: "product",
	}
}

func TestSaveItemsExtractsBucketAndLeavesComplement(t *testing.T) {
	firearm := cartLine(1, 1)
	regular := cartLine(200, 2)
	f := newFixture(t, cartWith(firearm, regular), nil)

	result, err := f.svc.SaveItems(context.Background(), "visitor-1", enums.SavedBucketRegular)
	if err != nil {
		t.Fatalf("save items: %v", err)
	}
	if result.SavedCount != 1 {
		t.Fatalf("expected 1 saved line, got %d", result.SavedCount)
	}
	if len(f.carts.removed) != 1 || f.carts.removed[0] != regular.ID {
		t.Fatalf("expected only the regular line removed, got %v", f.carts.removed)
	}
	if f.sessions.state.SavedCartToken != result.Token {
		t.Fatalf("expected token mirrored into session")
	}
	if _, ok := f.store.data[f.store.SavedCartKey(result.Token)]; !ok {
		t.Fatalf("expected bundle persisted")
	}
}

func TestSaveItemsFFLBucketTakesFirearmsAndAmmo(t *testing.T) {
	firearm := cartLine(1, 1)
	ammo := cartLine(100, 3)
	regular := cartLine(200, 1)
	f := newFixture(t, cartWith(firearm, ammo, regular), nil)

	result, err := f.svc.SaveItems(context.Background(), "visitor-1", enums.SavedBucketFFL)
	if err != nil {
		t.Fatalf("save items: %v", err)
	}
	if result.SavedCount != 2 {
		t.Fatalf("expected firearms and ammo saved, got %d", result.SavedCount)
	}
	if len(f.carts.removed) != 2 {
		t.Fatalf("expected 2 lines removed, got %d", len(f.carts.removed))
	}
}

func TestSaveItemsEmptyBucketFails(t *testing.T) {
	f := newFixture(t, cartWith(cartLine(200, 1)), nil)

	_, err := f.svc.SaveItems(context.Background(), "visitor-1", enums.SavedBucketFFL)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty bucket, got %v", err)
	}
}

func TestRestoreRoundTripAndDoubleRestoreGuard(t *testing.T) {
	regular := cartLine(200, 2)
	products := map[int64]*models.Product{
		200: {ID: 200, Name: "cleaning kit", PriceCents: 1999, StockQty: 10, IsActive: true, IsPurchasable: true},
	}
	f := newFixture(t, cartWith(cartLine(1, 1), regular), products)

	saved, err := f.svc.SaveItems(context.Background(), "visitor-1", enums.SavedBucketRegular)
	if err != nil {
		t.Fatalf("save items: %v", err)
	}

	result, err := f.svc.RestoreItems(context.Background(), "visitor-1", saved.Token)
	if err != nil {
		t.Fatalf("restore items: %v", err)
	}
	if result.RestoredCount != 1 || len(result.Failed) != 0 {
		t.Fatalf("expected clean restore, got %+v", result)
	}
	if len(f.carts.added) != 1 || f.carts.added[0].Quantity != 2 {
		t.Fatalf("expected original quantity restored, got %+v", f.carts.added)
	}
	if f.sessions.state.SavedCartToken != "" {
		t.Fatalf("expected session token cleared after restore")
	}

	_, err = f.svc.RestoreItems(context.Background(), "visitor-1", saved.Token)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected second restore to find nothing, got %v", err)
	}
}

func TestRestorePartialFailuresAreReported(t *testing.T) {
	products := map[int64]*models.Product{
		200: {ID: 200, Name: "cleaning kit", PriceCents: 1999, StockQty: 1, IsActive: true, IsPurchasable: true},
		201: {ID: 201, Name: "discontinued", StockQty: 5, IsActive: false, IsPurchasable: true},
		// 202 missing entirely
	}
	f := newFixture(t, cartWith(cartLine(200, 3), cartLine(201, 1), cartLine(202, 1)), products)

	saved, err := f.svc.SaveItems(context.Background(), "visitor-1", enums.SavedBucketRegular)
	if err != nil {
		t.Fatalf("save items: %v", err)
	}

	result, err := f.svc.RestoreItems(context.Background(), "visitor-1", saved.Token)
	if err != nil {
		t.Fatalf("restore must not fail outright: %v", err)
	}
	if result.RestoredCount != 1 {
		t.Fatalf("expected 1 restored line, got %d", result.RestoredCount)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected 2 per-line failures, got %+v", result.Failed)
	}
	// quantity clamped to available stock
	if f.carts.added[0].Quantity != 1 {
		t.Fatalf("expected quantity clamped to stock, got %d", f.carts.added[0].Quantity)
	}
}

func TestSaveTokenToOrder(t *testing.T) {
	f := newFixture(t, nil, nil)
	orderID := uuid.New()

	if err := f.svc.SaveTokenToOrder(context.Background(), orderID, "token-123"); err != nil {
		t.Fatalf("save token: %v", err)
	}
	if f.orders.metadata[OrderMetadataTokenKey] != "token-123" {
		t.Fatalf("expected token recorded on order metadata, got %v", f.orders.metadata)
	}

	if err := f.svc.SaveTokenToOrder(context.Background(), orderID, "  "); err != nil {
		t.Fatalf("blank token must be a no-op, got %v", err)
	}
}
