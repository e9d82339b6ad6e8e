package enums

import "fmt"

// ProductClass is the regulatory bucket a cart line falls into.
type ProductClass string

const (
	ProductClassFirearm ProductClass = "firearm"
	ProductClassAmmo    ProductClass = "ammo"
	ProductClassRegular ProductClass = "regular"
)

var validProductClasses = []ProductClass{
	ProductClassFirearm,
	ProductClassAmmo,
	ProductClassRegular,
}

// String implements fmt.Stringer.
func (p ProductClass) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductClass.
func (p ProductClass) IsValid() bool {
	for _, candidate := range validProductClasses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsFFL reports whether the class requires dealer routing in at least some state.
func (p ProductClass) IsFFL() bool {
	return p == ProductClassFirearm || p == ProductClassAmmo
}

// ParseProductClass converts raw input into a ProductClass.
func ParseProductClass(value string) (ProductClass, error) {
	for _, candidate := range validProductClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product class %q", value)
}
