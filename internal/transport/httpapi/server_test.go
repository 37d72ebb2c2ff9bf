package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/idempotency"
	"github.com/vladislavdragonenkov/orderflow/internal/service/member"
	"github.com/vladislavdragonenkov/orderflow/internal/service/order"
	"github.com/vladislavdragonenkov/orderflow/internal/service/payment"
	"github.com/vladislavdragonenkov/orderflow/internal/service/product"
	"github.com/vladislavdragonenkov/orderflow/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := log.New()
	logger.SetOutput(io.Discard)

	service := order.NewServiceWithoutMetrics(order.Deps{
		Orders:   memory.NewOrderRepository(),
		Members:  member.NewMockGateway(),
		Products: product.NewMockGateway(),
		Payments: payment.NewMockGateway(),
		Cache:    idempotency.New(100, time.Minute),
		Outbox:   memory.NewOutboxRepository(),
		Timeline: memory.NewTimelineRepository(),
		Logger:   logger.WithField("component", "test"),
	})

	srv := httptest.NewServer(NewServer(service, logger.WithField("component", "httpapi")).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func createBody(memberID, productID string, quantity int32) []byte {
	body, _ := json.Marshal(map[string]any{
		"member_id":      memberID,
		"payment_method": "CARD",
		"items": []map[string]any{
			{"product_id": productID, "quantity": quantity},
		},
	})
	return body
}

func doRequest(t *testing.T, method, url string, body []byte, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("response is not json object: %v\n%s", err, raw)
		}
	}
	return resp, decoded
}

func TestServer_CreateOrder_Created(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 3), nil)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if body["status"] != "confirmed" {
		t.Fatalf("order status = %v, want confirmed", body["status"])
	}
	if body["total_amount"] != "299.97" {
		t.Fatalf("total_amount = %v, want 299.97", body["total_amount"])
	}
	if body["payment_transaction_id"] == "" || body["payment_transaction_id"] == nil {
		t.Fatal("confirmed order must carry payment transaction id")
	}
}

func TestServer_CreateOrder_IdempotentReplay(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	headers := map[string]string{HeaderIdempotencyKey: "key-1"}
	first, firstBody := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 1), headers)
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first status = %d, want 201", first.StatusCode)
	}

	second, secondBody := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 1), headers)
	if second.StatusCode != http.StatusOK {
		t.Fatalf("replay status = %d, want 200", second.StatusCode)
	}
	if second.Header.Get("Idempotent-Replayed") != "true" {
		t.Fatal("replay must set Idempotent-Replayed header")
	}
	if firstBody["id"] != secondBody["id"] {
		t.Fatalf("replay must return the same order: %v vs %v", firstBody["id"], secondBody["id"])
	}
}

func TestServer_CreateOrder_ValidationError(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("", "product-1", 1), nil)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("code = %v, want VALIDATION_ERROR", body["code"])
	}
	fields, ok := body["field_errors"].([]any)
	if !ok || len(fields) == 0 {
		t.Fatalf("validation error must carry field_errors, got %v", body["field_errors"])
	}
}

func TestServer_CreateOrder_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/orders", []byte(`{"member_id":"m","bogus":1}`), nil)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("code = %v, want VALIDATION_ERROR", body["code"])
	}
}

func TestServer_CreateOrder_PaymentFailed(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	// 101 * 99.99 > 10000 — заглушка оплаты отклоняет.
	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 101), nil)

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if body["code"] != "PAYMENT_FAILED" {
		t.Fatalf("code = %v, want PAYMENT_FAILED", body["code"])
	}
}

func TestServer_CreateOrder_DomainErrorMapping(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	cases := []struct {
		name       string
		memberID   string
		productID  string
		wantStatus int
		wantCode   string
	}{
		{"member not found", member.IDNotFound, "product-1", http.StatusNotFound, "MEMBER_NOT_FOUND"},
		{"member inactive", member.IDInactive, "product-1", http.StatusBadRequest, "MEMBER_INACTIVE"},
		{"product not found", "member-1", product.IDNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"product discontinued", "member-1", product.IDDiscontinued, http.StatusBadRequest, "PRODUCT_UNAVAILABLE"},
		{"out of stock", "member-1", product.IDOutOfStock, http.StatusBadRequest, "INSUFFICIENT_STOCK"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody(tc.memberID, tc.productID, 1), nil)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			if body["code"] != tc.wantCode {
				t.Fatalf("code = %v, want %s", body["code"], tc.wantCode)
			}
		})
	}
}

func TestServer_GetOrder(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	_, created := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 2), nil)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("create must return order id")
	}

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/orders/"+id, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["id"] != id {
		t.Fatalf("id = %v, want %s", body["id"], id)
	}

	missing, missingBody := doRequest(t, http.MethodGet, srv.URL+"/api/orders/missing", nil, nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", missing.StatusCode)
	}
	if missingBody["code"] != "ORDER_NOT_FOUND" {
		t.Fatalf("code = %v, want ORDER_NOT_FOUND", missingBody["code"])
	}
}

func TestServer_ListOrders(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 1), nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed order %d: status = %d", i, resp.StatusCode)
		}
	}

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/orders?page=0&size=2", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["total"] != float64(3) {
		t.Fatalf("total = %v, want 3", body["total"])
	}
	orders, _ := body["orders"].([]any)
	if len(orders) != 2 {
		t.Fatalf("page size = %d, want 2", len(orders))
	}

	// Недопустимый size заменяется значением по умолчанию.
	resp, body = doRequest(t, http.MethodGet, srv.URL+"/api/orders?size=-5", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["size"] != float64(defaultPageSize) {
		t.Fatalf("size = %v, want %d", body["size"], defaultPageSize)
	}
}

func TestServer_CancelOrder(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	_, created := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 1), nil)
	id, _ := created["id"].(string)

	resp, body := doRequest(t, http.MethodPut, srv.URL+"/api/orders/"+id, []byte(`{"status":"CANCELLED"}`), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "cancelled" {
		t.Fatalf("order status = %v, want cancelled", body["status"])
	}
	if body["refund_transaction_id"] == "" || body["refund_transaction_id"] == nil {
		t.Fatal("cancelled confirmed order must carry refund transaction id")
	}

	// Повторная отмена отклоняется.
	resp, body = doRequest(t, http.MethodPut, srv.URL+"/api/orders/"+id, []byte(`{"status":"CANCELLED"}`), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("repeat status = %d, want 400", resp.StatusCode)
	}
	if body["code"] != "INVALID_ORDER_STATUS" {
		t.Fatalf("code = %v, want INVALID_ORDER_STATUS", body["code"])
	}
}

func TestServer_CancelOrder_WrongTarget(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	_, created := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 1), nil)
	id, _ := created["id"].(string)

	resp, body := doRequest(t, http.MethodPut, srv.URL+"/api/orders/"+id, []byte(`{"status":"CONFIRMED"}`), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["code"] != "INVALID_ORDER_STATUS" {
		t.Fatalf("code = %v, want INVALID_ORDER_STATUS", body["code"])
	}
}

func TestServer_GetTimeline(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	_, created := doRequest(t, http.MethodPost, srv.URL+"/api/orders", createBody("member-1", "product-1", 1), nil)
	id, _ := created["id"].(string)

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/orders/%s/timeline", srv.URL, id), nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var events []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	if len(events) < 2 {
		t.Fatalf("timeline events = %d, want at least 2", len(events))
	}
	if events[0]["type"] != "OrderCreated" {
		t.Fatalf("first event = %v, want OrderCreated", events[0]["type"])
	}

	missing, missingBody := doRequest(t, http.MethodGet, srv.URL+"/api/orders/missing/timeline", nil, nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", missing.StatusCode)
	}
	if missingBody["code"] != "ORDER_NOT_FOUND" {
		t.Fatalf("code = %v, want ORDER_NOT_FOUND", missingBody["code"])
	}
}
