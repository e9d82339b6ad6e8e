package gating

import (
	"strings"

	"github.com/fflcommerce/checkout-backend/internal/classify"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
)

// Decision is the checkout-eligibility verdict for one cart composition.
// Blocked marks the terminal compositions that only a cart change or a
// saved-cart split can escape.
type Decision struct {
	State          enums.GatingState   `json:"state"`
	Outcome        enums.GatingOutcome `json:"outcome"`
	RequiresDealer bool                `json:"requires_dealer"`
	Blocked        bool                `json:"blocked"`
	Reason         string              `json:"reason,omitempty"`
}

// Decide derives the gating decision from the cart classification, the
// destination-state signal, and the sticky dealer lock. It is pure; all
// side effects live in the service's apply step.
//
// The dealer lock only matters for the ammunition branch: once a dealer has
// been confirmed for a restricted destination, later destination-state
// changes are ignored so the dealer's own mailing address cannot unlock the
// flow.
func Decide(c classify.Classification, destState string, dealerLock bool) Decision {
	if c.APIError {
		return Decision{
			State:   enums.GatingStateAPIUnavailable,
			Outcome: enums.GatingOutcomeAllowed,
		}
	}

	if c.IsEmpty() || (!c.HasFirearms() && !c.HasAmmo()) {
		return Decision{
			State:   enums.GatingStateNoFFLProducts,
			Outcome: enums.GatingOutcomeAllowed,
		}
	}

	if c.IsFirearmsRegularMixed() {
		return Decision{
			State:   enums.GatingStateFirearmsRegularMixed,
			Outcome: enums.GatingOutcomeBlockedMixed,
			Blocked: true,
			Reason:  "Firearms cannot ship in the same order as regular merchandise. Remove items or save part of your cart for a separate order.",
		}
	}

	// Any firearms-containing cart that survived the mixed check routes to
	// a dealer unconditionally; destination state never matters here.
	if c.HasFirearms() {
		return Decision{
			State:          enums.GatingStateFirearmsOnly,
			Outcome:        enums.GatingOutcomeRequiresDealer,
			RequiresDealer: true,
			Reason:         "Firearms must ship to a licensed dealer. Choose a dealer to continue.",
		}
	}

	normalized := strings.ToUpper(strings.TrimSpace(destState))

	if c.IsAmmoRegularMixed() {
		switch {
		case normalized == "":
			return Decision{
				State:   enums.GatingStateAmmoRegularMixedNoState,
				Outcome: enums.GatingOutcomeRequiresState,
				Blocked: true,
				Reason:  "Enter your shipping state so we can confirm this cart can ship as one order.",
			}
		case c.RequiresFFLForState(normalized):
			return Decision{
				State:   enums.GatingStateAmmoRegularMixedRestricted,
				Outcome: enums.GatingOutcomeBlockedMixed,
				Blocked: true,
				Reason:  "Ammunition shipping to your state requires dealer delivery and cannot combine with regular merchandise. Remove items or split the order.",
			}
		default:
			return Decision{
				State:   enums.GatingStateAmmoRegularMixedUnrestricted,
				Outcome: enums.GatingOutcomeAllowed,
			}
		}
	}

	// ammo only from here down
	if dealerLock {
		return Decision{
			State:          enums.GatingStateAmmoOnlyRestricted,
			Outcome:        enums.GatingOutcomeRequiresDealer,
			RequiresDealer: true,
		}
	}

	switch {
	case normalized == "":
		return Decision{
			State:   enums.GatingStateAmmoOnlyNoState,
			Outcome: enums.GatingOutcomeRequiresState,
			Reason:  "Enter your shipping state to check ammunition shipping rules.",
		}
	case c.RequiresFFLForState(normalized):
		return Decision{
			State:          enums.GatingStateAmmoOnlyRestricted,
			Outcome:        enums.GatingOutcomeRequiresDealer,
			RequiresDealer: true,
			Reason:         "Ammunition shipping to your state must route through a licensed dealer. Choose a dealer to continue.",
		}
	default:
		return Decision{
			State:   enums.GatingStateAmmoOnlyUnrestricted,
			Outcome: enums.GatingOutcomeAllowed,
		}
	}
}
