package enums

import "fmt"

// ProductCategory represents the canonical product categories supported by the catalog.
type ProductCategory string

const (
	ProductCategoryVegetables  ProductCategory = "vegetables"
	ProductCategoryFruits      ProductCategory = "fruits"
	ProductCategoryGrains      ProductCategory = "grains"
	ProductCategoryDairy       ProductCategory = "dairy"
	ProductCategoryOrganicFood ProductCategory = "organicFood"
	ProductCategoryOthers      ProductCategory = "others"
)

var validProductCategories = []ProductCategory{
	ProductCategoryVegetables,
	ProductCategoryFruits,
	ProductCategoryGrains,
	ProductCategoryDairy,
	ProductCategoryOrganicFood,
	ProductCategoryOthers,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
