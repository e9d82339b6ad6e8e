package carts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
)

// Repository persists cart records and their lines.
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

// FindActive loads the visitor's active cart with its lines, or nil when
// none exists.
func (r *Repository) FindActive(ctx context.Context, visitorToken string) (*models.CartRecord, error) {
	var cart models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("visitor_token = ? AND status = ?", visitorToken, enums.CartStatusActive).
		First(&cart).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cart, nil
}

// EnsureActive returns the visitor's active cart, creating an empty one if
// necessary.
func (r *Repository) EnsureActive(ctx context.Context, visitorToken string) (*models.CartRecord, error) {
	cart, err := r.FindActive(ctx, visitorToken)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}
	cart = &models.CartRecord{ID: uuid.New(), VisitorToken: visitorToken, Status: enums.CartStatusActive}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// ActiveLines returns the lines of the visitor's active cart. A missing
// cart yields an empty slice.
func (r *Repository) ActiveLines(ctx context.Context, visitorToken string) ([]models.CartLine, error) {
	cart, err := r.FindActive(ctx, visitorToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, nil
	}
	return cart.Lines, nil
}

// ReplaceLines swaps the active cart's contents and recalculates totals in
// one transaction.
func (r *Repository) ReplaceLines(ctx context.Context, visitorToken string, lines []models.CartLine) (*models.CartRecord, error) {
	cart, err := r.EnsureActive(ctx, visitorToken)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartLine{}).Error; err != nil {
			return err
		}
		for i := range lines {
			if lines[i].ID == uuid.Nil {
				lines[i].ID = uuid.New()
			}
			lines[i].CartID = cart.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		return recalcTotals(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return r.FindActive(ctx, visitorToken)
}

// RemoveLines deletes the given lines from the cart and recalculates
// totals in one transaction.
func (r *Repository) RemoveLines(ctx context.Context, cartID uuid.UUID, lineIDs []uuid.UUID) error {
	if len(lineIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ? AND id IN ?", cartID, lineIDs).Delete(&models.CartLine{}).Error; err != nil {
			return err
		}
		return recalcTotals(tx, cartID)
	})
}

// AddLine appends one line to the cart and recalculates totals.
func (r *Repository) AddLine(ctx context.Context, cartID uuid.UUID, line *models.CartLine) error {
	if line == nil {
		return fmt.Errorf("line is required")
	}
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	line.CartID = cartID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(line).Error; err != nil {
			return err
		}
		return recalcTotals(tx, cartID)
	})
}

// MarkConverted flags the cart as turned into an order.
func (r *Repository) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": time.Now().UTC(),
		}).
		Error
}

func recalcTotals(tx *gorm.DB, cartID uuid.UUID) error {
	var subtotal int64
	err := tx.Model(&models.CartLine{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(SUM(line_subtotal_cents), 0)").
		Scan(&subtotal).
		Error
	if err != nil {
		return err
	}
	return tx.Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"subtotal_cents": subtotal,
			"total_cents":    subtotal,
		}).
		Error
}
