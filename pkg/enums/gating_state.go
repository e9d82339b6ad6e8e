package enums

import "fmt"

// GatingState identifies the node of the checkout gating graph the cart is in.
type GatingState string

const (
	GatingStateNoFFLProducts                GatingState = "no_ffl_products"
	GatingStateFirearmsOnly                 GatingState = "firearms_only"
	GatingStateAmmoOnlyNoState              GatingState = "ammo_only_no_state"
	GatingStateAmmoOnlyUnrestricted         GatingState = "ammo_only_unrestricted"
	GatingStateAmmoOnlyRestricted           GatingState = "ammo_only_restricted"
	GatingStateFirearmsRegularMixed         GatingState = "firearms_regular_mixed"
	GatingStateAmmoRegularMixedNoState      GatingState = "ammo_regular_mixed_no_state"
	GatingStateAmmoRegularMixedUnrestricted GatingState = "ammo_regular_mixed_unrestricted"
	GatingStateAmmoRegularMixedRestricted   GatingState = "ammo_regular_mixed_restricted"
	GatingStateAPIUnavailable               GatingState = "api_unavailable"
)

var validGatingStates = []GatingState{
	GatingStateNoFFLProducts,
	GatingStateFirearmsOnly,
	GatingStateAmmoOnlyNoState,
	GatingStateAmmoOnlyUnrestricted,
	GatingStateAmmoOnlyRestricted,
	GatingStateFirearmsRegularMixed,
	GatingStateAmmoRegularMixedNoState,
	GatingStateAmmoRegularMixedUnrestricted,
	GatingStateAmmoRegularMixedRestricted,
	GatingStateAPIUnavailable,
}

// String implements fmt.Stringer.
func (g GatingState) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GatingState.
func (g GatingState) IsValid() bool {
	for _, candidate := range validGatingStates {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGatingState converts raw input into a GatingState.
func ParseGatingState(value string) (GatingState, error) {
	for _, candidate := range validGatingStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gating state %q", value)
}
