package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tokokasir/internal/cache"
	"tokokasir/internal/domain"
	"tokokasir/internal/pricing"
	"tokokasir/internal/register"
	"tokokasir/internal/service"
	"tokokasir/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopCatalogCache{}, time.Minute, "")
	general, err := svc.GeneralMember(context.Background())
	if err != nil {
		t.Fatalf("general member: %v", err)
	}
	registry := register.NewRegistry(svc, register.SessionContext{GeneralMember: general}, 0)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, registry, auth, "*")
}

func login(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:4000"
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d", username, res.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

// call sends payload as JSON with token and decodes the response into out
// when out is non-nil. It returns the status code.
func call(t *testing.T, api *API, token string, method string, path string, payload any, out any) int {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if out != nil && res.Code < 300 {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return res.Code
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	var body map[string]any
	if code := call(t, api, "", http.MethodGet, "/healthz", nil, &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	code := call(t, api, "", http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: "admin", Password: "wrongpassword"}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestHandleLogin_MissingFieldsRejected(t *testing.T) {
	api := newTestAPI(t)

	code := call(t, api, "", http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	if code := call(t, api, "", http.MethodGet, "/api/v1/products", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	var body struct {
		Products []domain.Product `json:"products"`
	}
	if code := call(t, api, token, http.MethodGet, "/api/v1/products?q=mie", nil, &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(body.Products) != 1 || body.Products[0].ID != "prd-mie-goreng" {
		t.Fatalf("expected the noodle product, got %+v", body.Products)
	}

	var product domain.Product
	if code := call(t, api, token, http.MethodGet, "/api/v1/products/MIE-G", nil, &product); code != http.StatusOK {
		t.Fatalf("expected lookup by code to succeed, got %d", code)
	}
	if len(product.PriceTiers) != 3 {
		t.Fatalf("expected three price tiers, got %+v", product.PriceTiers)
	}

	if code := call(t, api, token, http.MethodGet, "/api/v1/products/NOPE", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", code)
	}
}

func TestSubmitSaleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	var product domain.Product
	call(t, api, token, http.MethodGet, "/api/v1/products/prd-telur-10", nil, &product)

	calc := pricing.Calculate([]domain.CartLine{{
		ProductID: product.ID, Name: product.Name, ProductCode: product.ProductCode,
		Quantity: 6, StockCeiling: product.Stock, PriceTiers: product.PriceTiers,
	}}, nil, decimal.Zero)
	req := domain.SaleRequest{
		IdempotencyKey:  "idem-http-1",
		CashierID:       "cashier",
		AttendantID:     "att-rina",
		TransactionType: domain.TransactionPaid,
		Items:           pricing.SaleItems(calc),
		Totals:          pricing.Totals(calc),
		Payment:         200000,
	}

	var sale domain.Sale
	if code := call(t, api, token, http.MethodPost, "/api/v1/sales", req, &sale); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if sale.Totals.GrandTotal != 6*25500 || sale.Change != 200000-6*25500 {
		t.Fatalf("unexpected totals %+v change %d", sale.Totals, sale.Change)
	}

	var replay domain.Sale
	if code := call(t, api, token, http.MethodPost, "/api/v1/sales", req, &replay); code != http.StatusOK {
		t.Fatalf("expected 200 for replay, got %d", code)
	}
	if !replay.Duplicate || replay.ID != sale.ID {
		t.Fatalf("expected duplicate of %s, got %+v", sale.ID, replay)
	}

	req.IdempotencyKey = "idem-http-2"
	req.Totals.GrandTotal = 1
	if code := call(t, api, token, http.MethodPost, "/api/v1/sales", req, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for tampered total, got %d", code)
	}
}

func TestSubmitSaleValidatesPayload(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	code := call(t, api, token, http.MethodPost, "/api/v1/sales", domain.SaleRequest{
		IdempotencyKey:  "idem-empty",
		CashierID:       "cashier",
		TransactionType: domain.TransactionPaid,
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a sale without items, got %d", code)
	}
}

func TestWarehouseCannotSell(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "gudang", "gudang123")

	if code := call(t, api, token, http.MethodGet, "/api/v1/products", nil, nil); code != http.StatusOK {
		t.Fatalf("expected warehouse to read products, got %d", code)
	}
	if code := call(t, api, token, http.MethodPost, "/api/v1/sales", domain.SaleRequest{}, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := call(t, api, token, http.MethodGet, "/api/v1/terminals/kasir-1/session", nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected 403 on terminal routes, got %d", code)
	}
}

func TestAdminManagesUsers(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin", "admin123")

	code := call(t, api, admin, http.MethodPost, "/api/v1/users", domain.UserCreateRequest{
		Username: "kasir2", Password: "rahasia1", Role: domain.RoleCashier,
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	code = call(t, api, admin, http.MethodPost, "/api/v1/users", domain.UserCreateRequest{
		Username: "x", Password: "rahasia1", Role: "owner",
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid user, got %d", code)
	}

	var listed struct {
		Users []domain.UserView `json:"users"`
	}
	call(t, api, admin, http.MethodGet, "/api/v1/users?role=cashier", nil, &listed)
	if len(listed.Users) != 2 {
		t.Fatalf("expected two cashiers, got %+v", listed.Users)
	}

	cashier := login(t, api, "kasir2", "rahasia1")
	if code := call(t, api, cashier, http.MethodGet, "/api/v1/users", nil, nil); code != http.StatusForbidden {
		t.Fatalf("expected cashier to be forbidden, got %d", code)
	}
}
