//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
)

const testAPIKey = "integration-test-key"

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func testAddress() shippingAddress {
	return shippingAddress{
		FullName:     "Asha Nair",
		Phone:        "+91 98765 43210",
		AddressLine1: "12 MG Road",
		City:         "Kochi",
		State:        "Kerala",
		PostalCode:   "682001",
	}
}

func codOrder(items ...orderItemRequest) orderRequest {
	return orderRequest{
		CustomerEmail:   "asha@example.com",
		Items:           items,
		ShippingAddress: testAddress(),
	}
}

func assertAmount(t *testing.T, want, got string) {
	t.Helper()
	if !decimal.RequireFromString(want).Equal(decimal.RequireFromString(got)) {
		t.Errorf("amount: got %s, want %s", got, want)
	}
}

func TestCODOrder_EmptyItems(t *testing.T) {
	resp := doPost(t, "/api/orders/cod", codOrder())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCODOrder_UnknownProduct(t *testing.T) {
	resp := doPost(t, "/api/orders/cod",
		codOrder(orderItemRequest{ProductID: "prod-nonexistent", Quantity: 1}))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message != "insufficient stock" {
		t.Errorf("message: got %q", body.Message)
	}
	if len(body.Details) == 0 {
		t.Error("expected per-item shortage details")
	}
}

func TestCODOrder_OutOfStockProduct(t *testing.T) {
	resp := doPost(t, "/api/orders/cod",
		codOrder(orderItemRequest{ProductID: "prod-neem-oil-100ml", Quantity: 1}))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCODOrder_InactiveProduct(t *testing.T) {
	resp := doPost(t, "/api/orders/cod",
		codOrder(orderItemRequest{ProductID: "prod-discontinued-tonic", Quantity: 1}))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCODOrder_BelowFreeShipping(t *testing.T) {
	// 2x Triphala 189.00 = 378.00: flat 50 shipping, 18% tax on 378.
	resp := doPost(t, "/api/orders/cod",
		codOrder(orderItemRequest{ProductID: "prod-triphala-churna", Quantity: 2}))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.Status != "confirmed" {
		t.Errorf("status: got %q, want confirmed", order.Status)
	}
	assertAmount(t, "378.00", order.Subtotal)
	assertAmount(t, "50.00", order.ShippingCost)
	assertAmount(t, "68.04", order.TaxAmount)
	assertAmount(t, "496.04", order.TotalAmount)

	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	if order.Items[0].ProductName != "Triphala Churna 200g" {
		t.Errorf("product name snapshot: got %q", order.Items[0].ProductName)
	}
}

func TestCODOrder_FreeShippingWithPercentageCoupon(t *testing.T) {
	// 2x Chyawanprash 499.00 = 998.00 with WELCOME10: 10% = 99.80,
	// free shipping, tax on 898.20.
	req := codOrder(orderItemRequest{ProductID: "prod-chyawanprash-1kg", Quantity: 2})
	req.CouponCode = "WELCOME10"

	resp := doPost(t, "/api/orders/cod", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	assertAmount(t, "998.00", order.Subtotal)
	assertAmount(t, "99.80", order.DiscountAmount)
	assertAmount(t, "0", order.ShippingCost)
	assertAmount(t, "161.68", order.TaxAmount)
	assertAmount(t, "1059.88", order.TotalAmount)
}

func TestCODOrder_FixedAmountCoupon(t *testing.T) {
	// 2x Triphala 189.00 = 378.00 with FLAT50: discount 50, shipping 50,
	// tax on 328.
	req := codOrder(orderItemRequest{ProductID: "prod-triphala-churna", Quantity: 2})
	req.CouponCode = "FLAT50"

	resp := doPost(t, "/api/orders/cod", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	assertAmount(t, "50.00", order.DiscountAmount)
	assertAmount(t, "59.04", order.TaxAmount)
	assertAmount(t, "437.04", order.TotalAmount)
}

func TestCODOrder_IneligibleCouponStillOrders(t *testing.T) {
	// FLAT50 needs a 300.00 order; below that the coupon is dropped and
	// checkout proceeds without a discount.
	req := codOrder(orderItemRequest{ProductID: "prod-triphala-churna", Quantity: 1})
	req.CouponCode = "FLAT50"

	resp := doPost(t, "/api/orders/cod", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	assertAmount(t, "0", order.DiscountAmount)
}

func TestGetOrder(t *testing.T) {
	resp := doPost(t, "/api/orders/cod",
		codOrder(orderItemRequest{ProductID: "prod-triphala-churna", Quantity: 1}))
	created := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	resp = doGet(t, "/api/orders/"+created.ID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	got := decodeJSON[orderResponse](t, resp)
	if got.ID != created.ID {
		t.Errorf("id: got %q, want %q", got.ID, created.ID)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListOrders_NoAuth(t *testing.T) {
	resp := doGet(t, "/api/orders?email=asha@example.com")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestListOrders_InvalidKey(t *testing.T) {
	resp := doGetWithAuth(t, "/api/orders?email=asha@example.com", "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestListOrders(t *testing.T) {
	email := "list-test@example.com"
	req := codOrder(orderItemRequest{ProductID: "prod-triphala-churna", Quantity: 1})
	req.CustomerEmail = email

	resp := doPost(t, "/api/orders/cod", req)
	resp.Body.Close()

	resp = doGetWithAuth(t, "/api/orders?email="+email, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	orders := decodeJSON[[]orderResponse](t, resp)
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].CustomerEmail != email {
		t.Errorf("email: got %q", orders[0].CustomerEmail)
	}
}

func TestUpdateOrderStatus_Lifecycle(t *testing.T) {
	resp := doPost(t, "/api/orders/cod",
		codOrder(orderItemRequest{ProductID: "prod-triphala-churna", Quantity: 1}))
	created := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	path := "/api/orders/" + created.ID + "/status"

	// Shipping without a tracking number is rejected.
	resp = doPatchWithAuth(t, path, map[string]string{"status": "shipped"}, testAPIKey)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("ship without tracking: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doPatchWithAuth(t, path,
		map[string]string{"status": "shipped", "tracking_number": "TRK-42"}, testAPIKey)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ship: expected 200, got %d", resp.StatusCode)
	}
	shipped := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if shipped.TrackingNumber != "TRK-42" {
		t.Errorf("tracking: got %q", shipped.TrackingNumber)
	}

	resp = doPatchWithAuth(t, path, map[string]string{"status": "delivered"}, testAPIKey)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deliver: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Delivered is terminal.
	resp = doPatchWithAuth(t, path, map[string]string{"status": "refunded"}, testAPIKey)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("refund after delivery: expected 422, got %d", resp.StatusCode)
	}
}

func TestUpdateOrderStatus_NoAuth(t *testing.T) {
	resp := doPatchWithAuth(t, "/api/orders/any/status", map[string]string{"status": "shipped"}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
