package models

import "time"

// Product is the host catalog row consulted when restoring saved lines. The
// integer ID matches the identifier the restrictions API classifies by.
type Product struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	SKU           string    `gorm:"column:sku;not null;uniqueIndex"`
	PriceCents    int       `gorm:"column:price_cents;not null;default:0"`
	StockQty      int       `gorm:"column:stock_qty;not null;default:0"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	IsPurchasable bool      `gorm:"column:is_purchasable;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
