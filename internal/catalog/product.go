// Package catalog holds the read-only product snapshot the engines compute
// over. Products are owned by the marketplace backend; the surrounding
// application supplies them as plain values on every call and the engines
// never mutate them.
package catalog

import (
	"time"

	"github.com/agrisync/agrisync-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// Product is a point-in-time snapshot of a backend product record.
type Product struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Category  enums.ProductCategory `json:"category"`
	Price     decimal.Decimal       `json:"price"`
	Quantity  int64                 `json:"quantity"`
	Unit      enums.ProductUnit     `json:"unit"`
	Organic   bool                  `json:"organic"`
	Available bool                  `json:"available"`
	FarmerID  string                `json:"farmer_id"`
	CreatedAt time.Time             `json:"created_at"`
}

// InStock reports whether the product can currently be bought.
func (p Product) InStock() bool {
	return p.Available && p.Quantity > 0
}

// Snapshot indexes a catalog slice for id lookups without copying products.
type Snapshot struct {
	products []Product
	byID     map[string]Product
}

// NewSnapshot builds an indexed view over the supplied products. The slice
// order is preserved; later duplicates of an id shadow earlier ones in the
// index only.
func NewSnapshot(products []Product) Snapshot {
	byID := make(map[string]Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	return Snapshot{products: products, byID: byID}
}

// Products returns the catalog in its supplied order.
func (s Snapshot) Products() []Product {
	return s.products
}

// Lookup returns the product for the given id.
func (s Snapshot) Lookup(id string) (Product, bool) {
	product, ok := s.byID[id]
	return product, ok
}

// Len reports the catalog size.
func (s Snapshot) Len() int {
	return len(s.products)
}
