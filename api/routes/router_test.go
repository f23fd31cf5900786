package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agrisync/agrisync-engine/internal/cart"
	"github.com/agrisync/agrisync-engine/internal/discounts"
	"github.com/agrisync/agrisync-engine/internal/preferences"
	"github.com/agrisync/agrisync-engine/internal/restrictions"
	"github.com/agrisync/agrisync-engine/internal/suggestions"
	"github.com/agrisync/agrisync-engine/pkg/clock"
	"github.com/agrisync/agrisync-engine/pkg/config"
	"github.com/agrisync/agrisync-engine/pkg/kv"
	"github.com/agrisync/agrisync-engine/pkg/logger"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	fake := clock.NewFake(testNow)
	blob := kv.NewMemory()

	discountEngine, err := discounts.NewEngine(ctx, discounts.Params{Store: blob, Logger: logg, Clock: fake})
	if err != nil {
		t.Fatalf("discount engine: %v", err)
	}
	cartStore, err := cart.NewStore(ctx, cart.Params{Store: blob, Logger: logg, Clock: fake, Discounts: discountEngine})
	if err != nil {
		t.Fatalf("cart store: %v", err)
	}
	restrictionEngine, err := restrictions.NewEngine(ctx, restrictions.Params{Store: blob, Logger: logg, Clock: fake})
	if err != nil {
		t.Fatalf("restriction engine: %v", err)
	}
	suggestionEngine, err := suggestions.NewEngine(ctx, suggestions.Params{Store: blob, Logger: logg, Clock: fake})
	if err != nil {
		t.Fatalf("suggestion engine: %v", err)
	}
	preferenceStore, err := preferences.NewStore(ctx, preferences.Params{Store: blob, Logger: logg})
	if err != nil {
		t.Fatalf("preference store: %v", err)
	}

	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	return NewRouter(cfg, logg, nil, Engines{
		Cart:         cartStore,
		Discounts:    discountEngine,
		Restrictions: restrictionEngine,
		Suggestions:  suggestionEngine,
		Preferences:  preferenceStore,
	}, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v (%s)", err, envelope.Data)
	}
}

func productBody(id, farmerID, price string) map[string]any {
	return map[string]any{
		"id":        id,
		"name":      id,
		"category":  "fruits",
		"price":     price,
		"quantity":  10,
		"unit":      "kg",
		"organic":   false,
		"available": true,
		"farmer_id": farmerID,
	}
}

func TestHealthLive(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-AgriSync-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestCartFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"product":  productBody("p1", "farmer-a", "10"),
		"quantity": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/cart", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view struct {
		Subtotal   string `json:"subtotal"`
		TotalItems int    `json:"total_items"`
		FinalTotal string `json:"final_total"`
	}
	decodeData(t, rec, &view)
	if view.Subtotal != "20" || view.TotalItems != 2 || view.FinalTotal != "20" {
		t.Fatalf("unexpected cart view: %+v", view)
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/cart/items/p1", map[string]any{"quantity": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var after struct {
		Items      []json.RawMessage `json:"items"`
		TotalItems int               `json:"total_items"`
	}
	decodeData(t, rec, &after)
	if len(after.Items) != 0 || after.TotalItems != 0 {
		t.Fatalf("expected empty cart after zero-quantity update, got %+v", after)
	}
}

func TestCartAddItemRejectsBadQuantity(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"product":  productBody("p1", "farmer-a", "10"),
		"quantity": 0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
	}
}

func TestCheckoutGroupsByFarmer(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	for i, farmer := range []string{"farmer-a", "farmer-b", "farmer-a"} {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", map[string]any{
			"product":  productBody(fmt.Sprintf("p%d", i+1), farmer, "5"),
			"quantity": 1,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed add failed: %d", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Drafts []struct {
			FarmerID string `json:"farmer_id"`
			Subtotal string `json:"subtotal"`
		} `json:"drafts"`
	}
	decodeData(t, rec, &result)
	if len(result.Drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(result.Drafts))
	}
	if result.Drafts[0].FarmerID != "farmer-a" || result.Drafts[0].Subtotal != "10" {
		t.Fatalf("unexpected first draft: %+v", result.Drafts[0])
	}
}

func TestCheckoutEmptyCartFails(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", rec.Code)
	}
}

func TestAdminDiscountCreateAndCalculate(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/admin/v1/discounts", map[string]any{
		"name":                "harvest sale",
		"type":                "seasonal",
		"value":               "20",
		"is_percentage":       true,
		"max_discount_amount": "150",
		"valid_from":          testNow.Add(-time.Hour).Format(time.RFC3339),
		"valid_until":         testNow.Add(time.Hour).Format(time.RFC3339),
		"target_type":         "all",
		"active":              true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/discounts/calculate", map[string]any{
		"order_amount": "1000",
		"items": []map[string]any{
			{"product": productBody("p1", "farmer-a", "1000"), "quantity": 1},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Discount struct {
			Name string `json:"name"`
		} `json:"discount"`
		Amount string `json:"amount"`
	}
	decodeData(t, rec, &result)
	// 20% of 1000 is 200, clamped to the 150 cap.
	if result.Discount.Name != "harvest sale" || result.Amount != "150" {
		t.Fatalf("unexpected calculate result: %+v", result)
	}
}

func TestAdminDiscountCreateRejectsUnknownType(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/admin/v1/discounts", map[string]any{
		"name":        "bogus",
		"type":        "flash",
		"valid_from":  testNow.Format(time.RFC3339),
		"valid_until": testNow.Format(time.RFC3339),
		"target_type": "all",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", rec.Code)
	}
}

func TestRestrictionCheckFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/api/admin/v1/restrictions", map[string]any{
		"type":      "product",
		"target_id": "p1",
		"reason":    "contaminated batch",
		"active":    true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/restrictions/check/product", productBody("p1", "farmer-a", "10"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var check struct {
		IsRestricted bool   `json:"is_restricted"`
		Reason       string `json:"reason"`
	}
	decodeData(t, rec, &check)
	if !check.IsRestricted || check.Reason != "contaminated batch" {
		t.Fatalf("unexpected verdict: %+v", check)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/restrictions/check/buyer/buyer-7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decodeData(t, rec, &check)
	if check.IsRestricted {
		t.Fatalf("unrestricted buyer flagged: %+v", check)
	}
}

func TestSuggestionsTrackAndLastViewed(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	for _, id := range []string{"p1", "p2", "p1"} {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/products/"+id+"/view", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("track view failed: %d", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/suggestions/last-viewed", map[string]any{
		"products": []map[string]any{
			productBody("p1", "farmer-a", "10"),
			productBody("p2", "farmer-a", "10"),
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var products []struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &products)
	if len(products) != 2 || products[0].ID != "p1" || products[1].ID != "p2" {
		t.Fatalf("expected re-viewed product first, got %+v", products)
	}
}

func TestPreferencesFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPut, "/api/v1/preferences/category", map[string]any{"category": "gadgets"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/api/v1/preferences/category", map[string]any{"category": "dairy"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var prefs struct {
		LastCategory string `json:"last_category"`
	}
	decodeData(t, rec, &prefs)
	if prefs.LastCategory != "dairy" {
		t.Fatalf("expected dairy, got %+v", prefs)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/preferences", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var after struct {
		LastCategory *string `json:"last_category"`
	}
	decodeData(t, rec, &after)
	if after.LastCategory != nil {
		t.Fatalf("expected reset record, got %+v", after)
	}
}
