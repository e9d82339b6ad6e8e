package profiles

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fflcommerce/checkout-backend/pkg/db/models"
)

// Repository persists the durable per-visitor profile, which today holds
// only the default shipping address the dealer mutation must restore.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find loads the visitor's profile, or nil when none exists.
func (r *Repository) Find(ctx context.Context, visitorToken string) (*models.VisitorProfile, error) {
	var profile models.VisitorProfile
	err := r.db.WithContext(ctx).First(&profile, "visitor_token = ?", visitorToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Upsert creates or replaces the visitor's profile row.
func (r *Repository) Upsert(ctx context.Context, profile *models.VisitorProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "visitor_token"}},
			DoUpdates: clause.AssignmentColumns([]string{"default_shipping_address", "updated_at"}),
		}).
		Create(profile).
		Error
}
