package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fflcommerce/checkout-backend/pkg/types"
)

// CartLine is one product entry in a cart. CartItemKey is the host platform's
// opaque per-line handle; it survives save-for-later round trips.
type CartLine struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID            uuid.UUID      `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID         int64          `gorm:"column:product_id;not null"`
	CartItemKey       string         `gorm:"column:cart_item_key;not null"`
	Quantity          int            `gorm:"column:quantity;not null"`
	VariationID       int64          `gorm:"column:variation_id;not null;default:0"`
	VariationAttrs    types.Metadata `gorm:"column:variation_attrs;type:jsonb;serializer:json"`
	CustomData        types.Metadata `gorm:"column:custom_data;type:jsonb;serializer:json"`
	ProductName       string         `gorm:"column:product_name;not null"`
	UnitPriceCents    int            `gorm:"column:unit_price_cents;not null;default:0"`
	LineSubtotalCents int            `gorm:"column:line_subtotal_cents;not null;default:0"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
