package classify

import (
	"context"
	"fmt"

	"github.com/fflcommerce/checkout-backend/internal/restrictions"
	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

type restrictionsService interface {
	GetRestrictions(ctx context.Context, ids []int64) (map[int64]restrictions.Restriction, error)
}

// Analyzer classifies cart lines into the three regulatory buckets.
type Analyzer interface {
	Analyze(ctx context.Context, lines []models.CartLine) Classification
}

type analyzer struct {
	restrictions restrictionsService
	logg         *logger.Logger
}

// NewAnalyzer builds the cart analyzer on top of the restrictions client.
func NewAnalyzer(svc restrictionsService, logg *logger.Logger) (Analyzer, error) {
	if svc == nil {
		return nil, fmt.Errorf("restrictions service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &analyzer{restrictions: svc, logg: logg}, nil
}

// Analyze buckets the lines by their product classification. Any
// restrictions failure degrades the whole cart to regular with APIError
// set; gating consumers skip their checks when the flag is present.
func (a *analyzer) Analyze(ctx context.Context, lines []models.CartLine) Classification {
	if len(lines) == 0 {
		return Classification{}
	}

	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	records, err := a.restrictions.GetRestrictions(ctx, ids)
	if err != nil {
		a.logg.Warn(ctx, "classification degraded, treating cart as regular: "+err.Error())
		return Classification{Regular: append([]models.CartLine(nil), lines...), APIError: true}
	}

	var firearms, ammo, regular []models.CartLine
	var ammoStates []string
	for _, line := range lines {
		record, ok := records[line.ProductID]
		if !ok {
			regular = append(regular, line)
			continue
		}
		switch record.Class {
		case enums.ProductClassFirearm:
			firearms = append(firearms, line)
		case enums.ProductClassAmmo:
			ammo = append(ammo, line)
			ammoStates = append(ammoStates, record.RestrictedStates...)
		default:
			regular = append(regular, line)
		}
	}

	return NewClassification(firearms, ammo, regular, ammoStates, false)
}
