package enums

import "fmt"

// RestrictionType identifies what a marketplace restriction targets.
type RestrictionType string

const (
	RestrictionTypeProduct  RestrictionType = "product"
	RestrictionTypeCategory RestrictionType = "category"
	RestrictionTypeSeller   RestrictionType = "seller"
	RestrictionTypeBuyer    RestrictionType = "buyer"
	RestrictionTypeRegion   RestrictionType = "region"
)

var validRestrictionTypes = []RestrictionType{
	RestrictionTypeProduct,
	RestrictionTypeCategory,
	RestrictionTypeSeller,
	RestrictionTypeBuyer,
	RestrictionTypeRegion,
}

// String implements fmt.Stringer.
func (r RestrictionType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RestrictionType.
func (r RestrictionType) IsValid() bool {
	for _, candidate := range validRestrictionTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRestrictionType converts raw input into a RestrictionType.
func ParseRestrictionType(value string) (RestrictionType, error) {
	for _, candidate := range validRestrictionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid restriction type %q", value)
}
