package controllers

import (
	"time"

	"github.com/agrisync/agrisync-engine/internal/catalog"
	"github.com/agrisync/agrisync-engine/pkg/enums"
	"github.com/shopspring/decimal"
)

// productPayload is the catalog entry shape the UI posts. The backend owns
// product data; the engine accepts it as-is and only checks the essentials.
type productPayload struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Unit      string          `json:"unit"`
	Organic   bool            `json:"organic"`
	Available bool            `json:"available"`
	FarmerID  string          `json:"farmer_id"`
	CreatedAt time.Time       `json:"created_at"`
}

func (p productPayload) toProduct() catalog.Product {
	return catalog.Product{
		ID:        p.ID,
		Name:      p.Name,
		Category:  enums.ProductCategory(p.Category),
		Price:     p.Price,
		Quantity:  p.Quantity,
		Unit:      enums.ProductUnit(p.Unit),
		Organic:   p.Organic,
		Available: p.Available,
		FarmerID:  p.FarmerID,
		CreatedAt: p.CreatedAt,
	}
}

func toProducts(payloads []productPayload) []catalog.Product {
	products := make([]catalog.Product, 0, len(payloads))
	for _, payload := range payloads {
		products = append(products, payload.toProduct())
	}
	return products
}
