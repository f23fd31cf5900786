package enums

import "fmt"

// SortOrder enumerates the listing sort modes the client remembers.
type SortOrder string

const (
	SortOrderNewest    SortOrder = "newest"
	SortOrderPriceLow  SortOrder = "price-low"
	SortOrderPriceHigh SortOrder = "price-high"
	SortOrderName      SortOrder = "name"
)

var validSortOrders = []SortOrder{
	SortOrderNewest,
	SortOrderPriceLow,
	SortOrderPriceHigh,
	SortOrderName,
}

// String implements fmt.Stringer.
func (s SortOrder) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SortOrder.
func (s SortOrder) IsValid() bool {
	for _, candidate := range validSortOrders {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSortOrder converts raw input into a SortOrder.
func ParseSortOrder(value string) (SortOrder, error) {
	for _, candidate := range validSortOrders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort order %q", value)
}
