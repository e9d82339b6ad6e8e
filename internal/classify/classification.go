package classify

import (
	"sort"
	"strings"

	"github.com/fflcommerce/checkout-backend/pkg/db/models"
)

// Classification buckets the cart's lines into regulatory categories. It is
// derived per request and never persisted; every line lands in exactly one
// bucket. When APIError is set the restrictions service could not be
// reached and every line was placed in Regular so checkout stays open.
type Classification struct {
	Firearms []models.CartLine
	Ammo     []models.CartLine
	Regular  []models.CartLine
	APIError bool

	ammoStates []string
}

// NewClassification assembles a classification from known bucket contents.
// State codes are normalized, deduplicated, and sorted.
func NewClassification(firearms, ammo, regular []models.CartLine, ammoStates []string, apiError bool) Classification {
	seen := make(map[string]struct{}, len(ammoStates))
	normalized := make([]string, 0, len(ammoStates))
	for _, code := range ammoStates {
		upper := strings.ToUpper(strings.TrimSpace(code))
		if upper == "" {
			continue
		}
		if _, ok := seen[upper]; ok {
			continue
		}
		seen[upper] = struct{}{}
		normalized = append(normalized, upper)
	}
	sort.Strings(normalized)
	return Classification{
		Firearms:   firearms,
		Ammo:       ammo,
		Regular:    regular,
		APIError:   apiError,
		ammoStates: normalized,
	}
}

// HasFirearms reports whether the firearms bucket is non-empty.
func (c Classification) HasFirearms() bool { return len(c.Firearms) > 0 }

// HasAmmo reports whether the ammunition bucket is non-empty.
func (c Classification) HasAmmo() bool { return len(c.Ammo) > 0 }

// HasRegular reports whether the unregulated bucket is non-empty.
func (c Classification) HasRegular() bool { return len(c.Regular) > 0 }

// IsEmpty reports whether the cart had no lines at all.
func (c Classification) IsEmpty() bool {
	return len(c.Firearms) == 0 && len(c.Ammo) == 0 && len(c.Regular) == 0
}

// IsFirearmsOnly reports a cart made up solely of firearm lines.
func (c Classification) IsFirearmsOnly() bool {
	return c.HasFirearms() && !c.HasAmmo() && !c.HasRegular()
}

// IsAmmoOnly reports a cart made up solely of ammunition lines.
func (c Classification) IsAmmoOnly() bool {
	return c.HasAmmo() && !c.HasFirearms() && !c.HasRegular()
}

// IsMixedFFLRegular reports the always-disallowed combination of any
// regulated bucket together with regular merchandise.
func (c Classification) IsMixedFFLRegular() bool {
	return (c.HasFirearms() || c.HasAmmo()) && c.HasRegular()
}

// IsFirearmsRegularMixed refines IsMixedFFLRegular to the firearm case,
// which is blocked outright.
func (c Classification) IsFirearmsRegularMixed() bool {
	return c.HasFirearms() && c.HasRegular()
}

// IsAmmoRegularMixed refines IsMixedFFLRegular to the ammunition case,
// which blocks only for restricted destination states.
func (c Classification) IsAmmoRegularMixed() bool {
	return c.HasAmmo() && !c.HasFirearms() && c.HasRegular()
}

// AmmoRestrictedStates returns the sorted union of restricted-state codes
// across every ammunition line in the cart.
func (c Classification) AmmoRestrictedStates() []string {
	out := make([]string, len(c.ammoStates))
	copy(out, c.ammoStates)
	return out
}

// RequiresFFLForState reports whether the given destination state sits in
// the ammunition restricted-state union.
func (c Classification) RequiresFFLForState(code string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return false
	}
	idx := sort.SearchStrings(c.ammoStates, normalized)
	return idx < len(c.ammoStates) && c.ammoStates[idx] == normalized
}
