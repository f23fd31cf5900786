package enums

import "fmt"

// DiscountTarget scopes which products a discount applies to.
type DiscountTarget string

const (
	DiscountTargetAll      DiscountTarget = "all"
	DiscountTargetCategory DiscountTarget = "category"
	DiscountTargetProduct  DiscountTarget = "product"
)

var validDiscountTargets = []DiscountTarget{
	DiscountTargetAll,
	DiscountTargetCategory,
	DiscountTargetProduct,
}

// String implements fmt.Stringer.
func (d DiscountTarget) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountTarget.
func (d DiscountTarget) IsValid() bool {
	for _, candidate := range validDiscountTargets {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountTarget converts raw input into a DiscountTarget.
func ParseDiscountTarget(value string) (DiscountTarget, error) {
	for _, candidate := range validDiscountTargets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount target %q", value)
}
