package enums

import "fmt"

// GatingOutcome is the checkout-eligibility verdict derived from a GatingState.
type GatingOutcome string

const (
	GatingOutcomeAllowed        GatingOutcome = "allowed"
	GatingOutcomeBlockedMixed   GatingOutcome = "blocked_mixed"
	GatingOutcomeRequiresDealer GatingOutcome = "requires_dealer_selection"
	GatingOutcomeRequiresState  GatingOutcome = "requires_state_input"
)

var validGatingOutcomes = []GatingOutcome{
	GatingOutcomeAllowed,
	GatingOutcomeBlockedMixed,
	GatingOutcomeRequiresDealer,
	GatingOutcomeRequiresState,
}

// String implements fmt.Stringer.
func (g GatingOutcome) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GatingOutcome.
func (g GatingOutcome) IsValid() bool {
	for _, candidate := range validGatingOutcomes {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGatingOutcome converts raw input into a GatingOutcome.
func ParseGatingOutcome(value string) (GatingOutcome, error) {
	for _, candidate := range validGatingOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gating outcome %q", value)
}
