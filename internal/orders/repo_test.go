package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  visitor_token TEXT NOT NULL,
  cart_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  shipping_address TEXT,
  billing_address TEXT,
  dealer_license_id TEXT,
  dealer_license_expiration DATETIME,
  dealer_uuid TEXT,
  metadata TEXT,
  subtotal_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL DEFAULT 0,
  placed_at DATETIME,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	return db
}

func mustCreateOrder(t *testing.T, repo *Repository, visitorToken string) *models.Order {
	t.Helper()
	order, err := repo.Create(context.Background(), &models.Order{
		VisitorToken: visitorToken,
		CartID:       uuid.New(),
		Status:       enums.OrderStatusPending,
		ShippingAddress: &types.Address{
			FirstName: "Ada",
			LastName:  "Byrne",
			Line1:     "12 Elm St",
			City:      "Sacramento",
			State:     "CA",
		},
	})
	require.NoError(t, err)
	return order
}

func TestFindPendingByVisitor(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()

	missing, err := repo.FindPendingByVisitor(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created := mustCreateOrder(t, repo, "visitor-1")
	found, err := repo.FindPendingByVisitor(ctx, "visitor-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Ada", found.ShippingAddress.FirstName)
}

func TestClearDealerFields(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()

	order := mustCreateOrder(t, repo, "visitor-1")
	license := "1-23-45678"
	dealerUUID := uuid.New()
	order.DealerLicenseID = &license
	order.DealerUUID = &dealerUUID
	require.NoError(t, repo.Update(ctx, order))

	require.NoError(t, repo.ClearDealerFields(ctx, "visitor-1"))

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.DealerLicenseID)
	assert.Nil(t, reloaded.DealerUUID)
	assert.False(t, reloaded.HasDealerLicense())
}

func TestAppendMetadataMergesKeys(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()

	order := mustCreateOrder(t, repo, "visitor-1")
	require.NoError(t, repo.AppendMetadata(ctx, order.ID, "saved_cart_token", "token-1"))
	require.NoError(t, repo.AppendMetadata(ctx, order.ID, "another_key", "value"))

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "token-1", reloaded.Metadata["saved_cart_token"])
	assert.Equal(t, "value", reloaded.Metadata["another_key"])
}

func TestOrderLifecycleStamps(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()

	order := mustCreateOrder(t, repo, "visitor-1")
	placedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkPlaced(ctx, order.ID, placedAt))

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPlaced, reloaded.Status)
	require.NotNil(t, reloaded.PlacedAt)

	require.NoError(t, repo.MarkProcessed(ctx, order.ID, time.Now().UTC()))
	reloaded, err = repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessed, reloaded.Status)
	require.NotNil(t, reloaded.ProcessedAt)
}
