package carts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
)

func setupCartsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	cartRecords := `
CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY,
  visitor_token TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  subtotal_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL DEFAULT 0,
  converted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartLines := `
CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id INTEGER NOT NULL,
  cart_item_key TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  variation_id INTEGER NOT NULL DEFAULT 0,
  variation_attrs TEXT,
  custom_data TEXT,
  product_name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL DEFAULT 0,
  line_subtotal_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(cartRecords).Error)
	require.NoError(t, db.Exec(cartLines).Error)
	return db
}

func mustCreateCart(t *testing.T, db *gorm.DB, visitorToken string, lines ...models.CartLine) *models.CartRecord {
	t.Helper()
	cart := &models.CartRecord{
		ID:           uuid.New(),
		VisitorToken: visitorToken,
		Status:       enums.CartStatusActive,
	}
	require.NoError(t, db.Create(cart).Error)
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].CartID = cart.ID
		require.NoError(t, db.Create(&lines[i]).Error)
	}
	return cart
}

func testLine(productID int64, qty, priceCents int) models.CartLine {
	return models.CartLine{
		ProductID:         productID,
		CartItemKey:       uuid.NewString(),
		Quantity:          qty,
		ProductName:       "product",
		UnitPriceCents:    priceCents,
		LineSubtotalCents: priceCents * qty,
	}
}

func TestFindActiveReturnsNilWhenMissing(t *testing.T) {
	repo := NewRepository(setupCartsTestDB(t))
	cart, err := repo.FindActive(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestEnsureActiveCreatesOnce(t *testing.T) {
	repo := NewRepository(setupCartsTestDB(t))
	ctx := context.Background()

	first, err := repo.EnsureActive(ctx, "visitor-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := repo.EnsureActive(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestRemoveLinesRecalculatesTotals(t *testing.T) {
	db := setupCartsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := mustCreateCart(t, db, "visitor-1", testLine(1, 2, 1000), testLine(2, 1, 500))
	loaded, err := repo.FindActive(ctx, "visitor-1")
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 2)

	require.NoError(t, repo.RemoveLines(ctx, cart.ID, []uuid.UUID{loaded.Lines[0].ID}))

	reloaded, err := repo.FindActive(ctx, "visitor-1")
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 1)
	assert.Equal(t, reloaded.Lines[0].LineSubtotalCents, reloaded.SubtotalCents)
}

func TestAddLineRecalculatesTotals(t *testing.T) {
	db := setupCartsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := mustCreateCart(t, db, "visitor-1")
	line := testLine(10, 3, 250)
	line.ID = uuid.New()
	require.NoError(t, repo.AddLine(ctx, cart.ID, &line))

	reloaded, err := repo.FindActive(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, 750, reloaded.SubtotalCents)
}

func TestReplaceLines(t *testing.T) {
	db := setupCartsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mustCreateCart(t, db, "visitor-1", testLine(1, 1, 100))

	next := testLine(2, 2, 300)
	next.ID = uuid.New()
	cart, err := repo.ReplaceLines(ctx, "visitor-1", []models.CartLine{next})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(2), cart.Lines[0].ProductID)
	assert.Equal(t, 600, cart.SubtotalCents)
}

func TestMarkConverted(t *testing.T) {
	db := setupCartsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	cart := mustCreateCart(t, db, "visitor-1")
	require.NoError(t, repo.MarkConverted(ctx, cart.ID))

	active, err := repo.FindActive(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Nil(t, active)
}
