// Package checkout turns a cart into per-farmer order drafts. The
// marketplace settles with each farmer separately, so one checkout can
// produce several drafts.
package checkout

import (
	"github.com/agrisync/agrisync-engine/internal/cart"
	"github.com/shopspring/decimal"
)

// DraftLine is one product line inside a farmer's order draft.
type DraftLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Draft is the order placed with a single farmer.
type Draft struct {
	FarmerID string          `json:"farmer_id"`
	Lines    []DraftLine     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// BuildDrafts groups cart lines by farmer, preserving the cart's insertion
// order both across farmers and within each draft.
func BuildDrafts(items []cart.Item) []Draft {
	byFarmer := make(map[string]int)
	var drafts []Draft
	for _, item := range items {
		lineTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		line := DraftLine{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
			LineTotal: lineTotal,
		}
		idx, ok := byFarmer[item.Product.FarmerID]
		if !ok {
			drafts = append(drafts, Draft{FarmerID: item.Product.FarmerID, Subtotal: decimal.Zero})
			idx = len(drafts) - 1
			byFarmer[item.Product.FarmerID] = idx
		}
		drafts[idx].Lines = append(drafts[idx].Lines, line)
		drafts[idx].Subtotal = drafts[idx].Subtotal.Add(lineTotal)
	}
	return drafts
}
