package types

import "strings"

// Address is the shipping/billing address shape shared by orders, profiles,
// and dealer records. Persisted as jsonb via the gorm json serializer.
type Address struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Company    string `json:"company,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// IsZero reports whether no address fields are populated.
func (a Address) IsZero() bool {
	return a.Line1 == "" && a.City == "" && a.State == "" && a.PostalCode == ""
}

// NormalizedState returns the uppercase two-letter state code, or "".
func (a Address) NormalizedState() string {
	return NormalizeStateCode(a.State)
}

// NormalizeStateCode uppercases and trims a state code; unknown lengths pass
// through so validation stays the caller's concern.
func NormalizeStateCode(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
