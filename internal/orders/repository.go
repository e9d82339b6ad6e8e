package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

// Repository persists orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new order row.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FindByID loads an order by its identifier.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindPendingByVisitor loads the visitor's in-progress order, or nil when
// none exists.
func (r *Repository) FindPendingByVisitor(ctx context.Context, visitorToken string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("visitor_token = ? AND status = ?", visitorToken, enums.OrderStatusPending).
		Order("created_at DESC").
		First(&order).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Update saves the full order row.
func (r *Repository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// ClearDealerFields nulls the dealer columns on the visitor's pending
// order. Used when a tentative dealer selection is discarded.
func (r *Repository) ClearDealerFields(ctx context.Context, visitorToken string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("visitor_token = ? AND status = ?", visitorToken, enums.OrderStatusPending).
		Updates(map[string]any{
			"dealer_license_id":         nil,
			"dealer_license_expiration": nil,
			"dealer_uuid":               nil,
		}).
		Error
}

// AppendMetadata merges one key into the order's jsonb metadata document.
func (r *Repository) AppendMetadata(ctx context.Context, orderID uuid.UUID, key, value string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		if order.Metadata == nil {
			order.Metadata = types.Metadata{}
		}
		order.Metadata[key] = value
		return tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("metadata", order.Metadata).
			Error
	})
}

// MarkPlaced stamps the order as placed.
func (r *Repository) MarkPlaced(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":    enums.OrderStatusPlaced,
			"placed_at": at,
		}).
		Error
}

// MarkProcessed stamps the order as processed by the host platform.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.OrderStatusProcessed,
			"processed_at": at,
		}).
		Error
}
