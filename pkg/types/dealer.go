package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dealer is the licensed dealer payload delivered by the embedded picker.
type Dealer struct {
	LicenseID         string     `json:"license_id" validate:"required"`
	LicenseExpiration *time.Time `json:"license_expiration,omitempty"`
	DealerUUID        uuid.UUID  `json:"dealer_uuid" validate:"required"`
	Company           string     `json:"company" validate:"required"`
	Line1             string     `json:"line1" validate:"required"`
	Line2             string     `json:"line2,omitempty"`
	City              string     `json:"city" validate:"required"`
	State             string     `json:"state" validate:"required,len=2"`
	PostalCode        string     `json:"postal_code" validate:"required"`
	Phone             string     `json:"phone,omitempty"`
}

// Address maps the dealer's location onto the shared address shape. The
// customer's own name is intentionally not part of this value; callers must
// preserve it when overwriting an order's shipping address.
func (d Dealer) Address() Address {
	return Address{
		Company:    d.Company,
		Line1:      d.Line1,
		Line2:      d.Line2,
		City:       d.City,
		State:      NormalizeStateCode(d.State),
		PostalCode: d.PostalCode,
		Country:    "US",
		Phone:      d.Phone,
	}
}

// LicenseExpired reports whether the dealer's license lapsed before now.
func (d Dealer) LicenseExpired(now time.Time) bool {
	return d.LicenseExpiration != nil && d.LicenseExpiration.Before(now)
}

// IsZero reports whether the dealer value carries no license identity.
func (d Dealer) IsZero() bool {
	return strings.TrimSpace(d.LicenseID) == "" && d.DealerUUID == uuid.Nil
}
