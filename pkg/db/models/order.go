package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fflcommerce/checkout-backend/pkg/enums"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

// Order is the persisted checkout outcome. Dealer license fields live beside
// the address, never inside it, so the audit trail survives address rewrites.
type Order struct {
	ID                      uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VisitorToken            string            `gorm:"column:visitor_token;not null;index"`
	CartID                  uuid.UUID         `gorm:"column:cart_id;type:uuid;not null"`
	Status                  enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	ShippingAddress         *types.Address    `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress          *types.Address    `gorm:"column:billing_address;type:jsonb;serializer:json"`
	DealerLicenseID         *string           `gorm:"column:dealer_license_id"`
	DealerLicenseExpiration *time.Time        `gorm:"column:dealer_license_expiration"`
	DealerUUID              *uuid.UUID        `gorm:"column:dealer_uuid;type:uuid"`
	Metadata                types.Metadata    `gorm:"column:metadata;type:jsonb;serializer:json"`
	SubtotalCents           int               `gorm:"column:subtotal_cents;not null;default:0"`
	TotalCents              int               `gorm:"column:total_cents;not null;default:0"`
	PlacedAt                *time.Time        `gorm:"column:placed_at"`
	ProcessedAt             *time.Time        `gorm:"column:processed_at"`
	CreatedAt               time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// HasDealerLicense reports whether a dealer license value is actually present,
// the authoritative signal server-side validation trusts over any client flag.
func (o Order) HasDealerLicense() bool {
	return o.DealerLicenseID != nil && *o.DealerLicenseID != ""
}
