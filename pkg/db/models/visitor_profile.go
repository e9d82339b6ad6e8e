package models

import (
	"time"

	"github.com/fflcommerce/checkout-backend/pkg/types"
)

// VisitorProfile is the durable account-level address storage the dealer
// mutation temporarily overwrites and must restore after order completion.
type VisitorProfile struct {
	VisitorToken           string         `gorm:"column:visitor_token;primaryKey"`
	DefaultShippingAddress *types.Address `gorm:"column:default_shipping_address;type:jsonb;serializer:json"`
	CreatedAt              time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
