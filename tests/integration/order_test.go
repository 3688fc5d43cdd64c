//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

// Keys and ids created by db/seed/catalog.json on a fresh database.
const (
	customerKey = "dev-customer-key"
	operatorKey = "dev-operator-key"

	variantTee      = 1 // 500.00, 10 in stock
	variantTeeSale  = 2 // 450.00 discounted, 5 in stock
	variantCap      = 3 // 200.00, bonus price 150.00, 20 in stock
	customerAddress = 1
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func addressID() *int64 {
	id := int64(customerAddress)
	return &id
}

func placeOrder(t *testing.T, req checkoutRequest) checkoutResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, "/api/orders", req, customerKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body := decodeJSON[errorResponse](t, resp)
		t.Fatalf("expected 201, got %d: %+v", resp.StatusCode, body)
	}
	return decodeJSON[checkoutResponse](t, resp)
}

func TestCheckout_NoAuth(t *testing.T) {
	resp := doJSON(t, http.MethodPost, "/api/orders", checkoutRequest{
		Products: []checkoutItem{{VariantID: variantCap, Quantity: 1}},
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      checkoutRequest
		wantCode int
		wantKind string
	}{
		{
			name:     "empty cart",
			req:      checkoutRequest{Products: []checkoutItem{}, UserAddressID: addressID()},
			wantCode: http.StatusBadRequest,
			wantKind: "validation_failed",
		},
		{
			name:     "missing delivery target",
			req:      checkoutRequest{Products: []checkoutItem{{VariantID: variantCap, Quantity: 1}}},
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "missing_delivery_target",
		},
		{
			name:     "unknown variant",
			req:      checkoutRequest{Products: []checkoutItem{{VariantID: 999, Quantity: 1}}, UserAddressID: addressID()},
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "variant_not_found",
		},
		{
			name:     "insufficient stock",
			req:      checkoutRequest{Products: []checkoutItem{{VariantID: variantTeeSale, Quantity: 1000}}, UserAddressID: addressID()},
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "insufficient_stock",
		},
		{
			name:     "unknown promo code",
			req:      checkoutRequest{Products: []checkoutItem{{VariantID: variantCap, Quantity: 1}}, UserAddressID: addressID(), PromoCode: "NOPE"},
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "invalid_promo_code",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, "/api/orders", tt.req, customerKey)
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, resp.StatusCode)
			}
			body := decodeJSON[errorResponse](t, resp)
			if body.Error != tt.wantKind {
				t.Errorf("error kind: got %q, want %q", body.Error, tt.wantKind)
			}
		})
	}
}

func TestCheckout_DeliveryWithPromo(t *testing.T) {
	res := placeOrder(t, checkoutRequest{
		Products:      []checkoutItem{{VariantID: variantTee, Quantity: 2}},
		UserAddressID: addressID(),
		PaymentMethod: "cash",
		OrderSource:   "mobile",
		PromoCode:     "sale10",
	})

	o := res.Order
	if !uuidPattern.MatchString(o.ID) {
		t.Errorf("order id %q is not a UUID", o.ID)
	}
	if o.Subtotal != "1000.00" || o.Discount != "100.00" || o.TotalAmount != "900.00" {
		t.Errorf("totals: subtotal=%s discount=%s total=%s", o.Subtotal, o.Discount, o.TotalAmount)
	}
	if o.Status != "pending" {
		t.Errorf("status: got %q", o.Status)
	}
	if o.DeliveryInfo == "" {
		t.Error("delivery_info missing on delivery order")
	}
	if res.EarnedBonus != 50 {
		t.Errorf("earned bonus: got %d, want 50", res.EarnedBonus)
	}
}

func TestCheckout_PickupUsesPrimaryWarehouse(t *testing.T) {
	res := placeOrder(t, checkoutRequest{
		Products:      []checkoutItem{{VariantID: variantCap, Quantity: 1}},
		IsPickup:      true,
		PaymentMethod: "cash",
	})
	if res.Order.WarehouseCity != "Almaty" {
		t.Errorf("warehouse city: got %q", res.Order.WarehouseCity)
	}
	if res.Order.TotalAmount != "200.00" {
		t.Errorf("total: got %s", res.Order.TotalAmount)
	}
}

func TestCheckout_BonusLine(t *testing.T) {
	res := placeOrder(t, checkoutRequest{
		Products:      []checkoutItem{{VariantID: variantCap, Quantity: 1, IsBonus: true}},
		IsPickup:      true,
		PaymentMethod: "card",
	})
	if res.Order.TotalBonusAmount != "150.00" {
		t.Errorf("bonus amount: got %s", res.Order.TotalBonusAmount)
	}
	if res.PaymentURL != "" {
		t.Errorf("fully bonus-funded order should not start a payment, got %q", res.PaymentURL)
	}
}

func TestOrderLifecycle(t *testing.T) {
	res := placeOrder(t, checkoutRequest{
		Products:      []checkoutItem{{VariantID: variantCap, Quantity: 2}},
		IsPickup:      true,
		PaymentMethod: "cash",
		OrderSource:   "web",
	})
	path := "/api/orders/" + res.Order.ID

	resp := doJSON(t, http.MethodPatch, path+"/status", map[string]string{"status": "in_progress"}, customerKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer transition: expected 403, got %d", resp.StatusCode)
	}

	for _, next := range []string{"in_progress", "delivery", "completed"} {
		resp := doJSON(t, http.MethodPatch, path+"/status", map[string]string{"status": next}, operatorKey)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: got %d", next, resp.StatusCode)
		}
	}

	resp = doJSON(t, http.MethodPatch, path+"/status", map[string]string{"status": "cancelled"}, operatorKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("transition out of completed: expected 409, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, path, nil, customerKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get order: got %d", resp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, resp)
	if o.Status != "completed" || !o.BonusApplied {
		t.Errorf("status=%s bonus_applied=%v", o.Status, o.BonusApplied)
	}

	rec := doJSON(t, http.MethodGet, path+"/reconciliation", nil, operatorKey)
	defer rec.Body.Close()
	if rec.StatusCode != http.StatusOK {
		t.Fatalf("reconciliation: got %d", rec.StatusCode)
	}
	if body := decodeJSON[map[string]any](t, rec); body["consistent"] != true {
		t.Errorf("reconciliation: %+v", body)
	}
}

func TestListOrders(t *testing.T) {
	placeOrder(t, checkoutRequest{
		Products:      []checkoutItem{{VariantID: variantCap, Quantity: 1}},
		IsPickup:      true,
		PaymentMethod: "cash",
	})

	resp := doJSON(t, http.MethodGet, "/api/orders?limit=1", nil, customerKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON[struct {
		Orders []orderResponse `json:"orders"`
		Limit  int             `json:"limit"`
	}](t, resp)
	if len(body.Orders) != 1 || body.Limit != 1 {
		t.Errorf("got %d orders with limit %d", len(body.Orders), body.Limit)
	}
}

func TestPromoCode(t *testing.T) {
	resp := doGet(t, "/api/promo-codes/sale10")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	p := decodeJSON[promoResponse](t, resp)
	if p.Code != "SALE10" || p.Type != "percentage" || p.Discount != "10.00" {
		t.Errorf("promo: %+v", p)
	}

	missing := doGet(t, "/api/promo-codes/MISSING")
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", missing.StatusCode)
	}
}
