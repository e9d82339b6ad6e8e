package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fflcommerce/checkout-backend/pkg/enums"
)

// CartRecord is the live cart for one visitor session.
type CartRecord struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VisitorToken  string           `gorm:"column:visitor_token;not null;index"`
	Status        enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	SubtotalCents int              `gorm:"column:subtotal_cents;not null;default:0"`
	TotalCents    int              `gorm:"column:total_cents;not null;default:0"`
	Lines         []CartLine       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	ConvertedAt   *time.Time       `gorm:"column:converted_at"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
