package enums

import "fmt"

// SavedBucket names which side of a disallowed mix gets deferred to a bundle.
type SavedBucket string

const (
	SavedBucketFFL     SavedBucket = "ffl"
	SavedBucketRegular SavedBucket = "regular"
)

var validSavedBuckets = []SavedBucket{
	SavedBucketFFL,
	SavedBucketRegular,
}

// String implements fmt.Stringer.
func (s SavedBucket) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SavedBucket.
func (s SavedBucket) IsValid() bool {
	for _, candidate := range validSavedBuckets {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSavedBucket converts raw input into a SavedBucket.
func ParseSavedBucket(value string) (SavedBucket, error) {
	for _, candidate := range validSavedBuckets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid saved bucket %q", value)
}
