package restrictions

import (
	"strings"

	"github.com/fflcommerce/checkout-backend/pkg/enums"
)

// Restriction is the typed classification record for one product. It is
// constructed at the client boundary; the raw API payload never leaves
// this package.
type Restriction struct {
	ProductID        int64              `json:"product_id"`
	Class            enums.ProductClass `json:"class"`
	RestrictedStates []string           `json:"restricted_states,omitempty"`
}

// RequiresDealerInState reports whether the product needs dealer routing for
// the given destination state code.
func (r Restriction) RequiresDealerInState(code string) bool {
	if r.Class == enums.ProductClassFirearm {
		return true
	}
	if r.Class != enums.ProductClassAmmo {
		return false
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, state := range r.RestrictedStates {
		if state == normalized {
			return true
		}
	}
	return false
}

// restrictionRecord mirrors one entry of the upstream API response. A missing
// conditions object means an absolute restriction (firearm); a present one
// means conditional (ammunition) with the listed states.
type restrictionRecord struct {
	ID         int64 `json:"id"`
	Conditions *struct {
		States []string `json:"states"`
	} `json:"conditions"`
}

func (rec restrictionRecord) toRestriction() Restriction {
	if rec.Conditions == nil {
		return Restriction{ProductID: rec.ID, Class: enums.ProductClassFirearm}
	}
	states := make([]string, 0, len(rec.Conditions.States))
	for _, s := range rec.Conditions.States {
		normalized := strings.ToUpper(strings.TrimSpace(s))
		if normalized == "" {
			continue
		}
		states = append(states, normalized)
	}
	return Restriction{
		ProductID:        rec.ID,
		Class:            enums.ProductClassAmmo,
		RestrictedStates: states,
	}
}
