package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"procurement/internal/core/id"
	"procurement/internal/domain/auth"
	"procurement/internal/domain/catalogs/product"
	"procurement/internal/domain/catalogs/supplier"
	"procurement/internal/domain/documents/goods_receipt"
	"procurement/internal/domain/documents/payment_out"
	"procurement/internal/domain/documents/purchase_bill"
	"procurement/internal/domain/documents/purchase_order"
	"procurement/internal/domain/reports"
	"procurement/internal/domain/settings"
	"procurement/internal/infrastructure/http/v1/handlers"
	"procurement/internal/infrastructure/storage/memory"
	"procurement/pkg/logger"
)

type testAPI struct {
	t        *testing.T
	router   http.Handler
	jwt      *auth.JWTService
	tenantID id.ID
}

func newTestAPI(t *testing.T, mutate ...func(*RouterConfig)) *testAPI {
	t.Helper()
	store := memory.NewStore()

	cfg := RouterConfig{
		Logger:       logger.NewFromZap(zap.NewNop()),
		JWTValidator: nil,
		TxManager:    store,
		Services: Services{
			Products:  product.NewService(store.Products(), store, nil),
			Suppliers: supplier.NewService(store.Suppliers(), store, nil),
			Orders:    purchase_order.NewService(store.Orders(), store.Products(), store.Suppliers(), store.Sequence(), store, nil),
			Receipts:  goods_receipt.NewService(store.Receipts(), store.Orders(), store.Products(), store, nil),
			Bills:     purchase_bill.NewService(store.Bills(), store.Orders(), store.Suppliers(), store, nil),
			Payments:  payment_out.NewService(store.Payments(), store.Bills(), store.Sequence(), nil, store, nil),
			Settings:  settings.NewService(store.Settings(), store, nil),
			Reports:   reports.NewService(store.Reports()),
		},
		Version: "test",
	}
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig("router-test-secret"))
	cfg.JWTValidator = jwtService
	for _, m := range mutate {
		m(&cfg)
	}

	router, err := NewRouter(cfg)
	require.NoError(t, err)
	return &testAPI{t: t, router: router, jwt: jwtService, tenantID: id.New()}
}

func (a *testAPI) token(tenantID id.ID, roles ...string) string {
	a.t.Helper()
	tok, _, err := a.jwt.GenerateAccessToken("user-1", tenantID.String(), "", roles, false)
	require.NoError(a.t, err)
	return tok
}

type response struct {
	Status int
	Header http.Header
	Body   map[string]any
}

func (a *testAPI) do(method, path, token string, body any, headers ...string) response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	res := response{Status: rec.Code, Header: rec.Header()}
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &res.Body), rec.Body.String())
	}
	return res
}

func str(t *testing.T, body map[string]any, key string) string {
	t.Helper()
	v, ok := body[key].(string)
	require.True(t, ok, "%s missing in %v", key, body)
	return v
}

func dec(t *testing.T, body map[string]any, key string) decimal.Decimal {
	t.Helper()
	var d decimal.Decimal
	switch v := body[key].(type) {
	case string:
		d = decimal.RequireFromString(v)
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		t.Fatalf("%s is not a decimal in %v", key, body)
	}
	return d
}

func TestRouter_ProcureToPayFlow(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(api.tenantID, "purchasing", "payables")

	res := api.do(http.MethodPost, "/api/v1/suppliers", tok, map[string]any{"taxId": "j-30123456-7", "name": "Distribuidora"})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	supplierID := str(t, res.Body, "id")
	assert.Equal(t, "J-30123456-7", res.Body["code"])

	res = api.do(http.MethodPost, "/api/v1/products", tok, map[string]any{"code": "P-1", "name": "Toner"})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	productID := str(t, res.Body, "id")

	res = api.do(http.MethodPost, "/api/v1/purchase-orders", tok, map[string]any{
		"supplierId": supplierID,
		"lines":      []map[string]any{{"productId": productID, "quantity": "10", "unitPrice": "5"}},
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	orderID := str(t, res.Body, "id")
	assert.Equal(t, "OC-0001", res.Body["number"])
	assert.Equal(t, "OPEN", res.Body["status"])
	assert.True(t, dec(t, res.Body, "totalAmount").Equal(decimal.NewFromInt(50)))

	res = api.do(http.MethodPost, "/api/v1/purchase-orders/"+orderID+"/receipts", tok, map[string]any{
		"lines": []map[string]any{{"productId": productID, "quantity": "10"}},
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	receiptID := str(t, res.Body, "id")

	res = api.do(http.MethodGet, "/api/v1/goods-receipts/"+receiptID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, orderID, res.Body["orderId"])

	res = api.do(http.MethodGet, "/api/v1/purchase-orders/"+orderID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "RECEIVED", res.Body["status"])

	res = api.do(http.MethodGet, "/api/v1/products/"+productID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.True(t, dec(t, res.Body, "currentStock").Equal(decimal.NewFromInt(10)))
	assert.True(t, dec(t, res.Body, "averageCost").Equal(decimal.NewFromInt(5)))

	res = api.do(http.MethodPost, "/api/v1/purchase-bills", tok, map[string]any{
		"orderId":       orderID,
		"supplierId":    supplierID,
		"invoiceNumber": "F-100",
		"lines":         []map[string]any{{"productId": productID, "quantity": "10", "unitPrice": "5"}},
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	billID := str(t, res.Body, "id")
	assert.Equal(t, "UNPAID", res.Body["status"])
	assert.True(t, dec(t, res.Body, "totalAmount").Equal(decimal.NewFromInt(50)))

	res = api.do(http.MethodPost, "/api/v1/payments-out", tok, map[string]any{
		"method": "ZELLE",
		"bills":  []map[string]any{{"billId": billID, "amountApplied": "50"}},
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	assert.Equal(t, "EGR-000001", res.Body["number"])
	assert.True(t, dec(t, res.Body, "amountPaid").Equal(decimal.NewFromInt(50)))

	res = api.do(http.MethodGet, "/api/v1/purchase-bills/"+billID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "PAID", res.Body["status"])

	// A paid bill can no longer be voided.
	res = api.do(http.MethodDelete, "/api/v1/purchase-bills/"+billID, tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status, res.Body)

	res = api.do(http.MethodGet, "/api/v1/payments-out?billId="+billID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.EqualValues(t, 1, res.Body["totalCount"])
}

func TestRouter_DashboardStats(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(api.tenantID, "purchasing")

	for _, code := range []string{"P-1", "P-2"} {
		res := api.do(http.MethodPost, "/api/v1/products", tok, map[string]any{"code": code, "name": "Toner " + code})
		require.Equal(t, http.StatusCreated, res.Status, res.Body)
	}

	res := api.do(http.MethodGet, "/api/v1/dashboard/stats?limit=1", api.token(api.tenantID), nil)
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	assert.EqualValues(t, 2, res.Body["totalProducts"])
	assert.EqualValues(t, 2, res.Body["lowStockCount"])
	assert.True(t, dec(t, res.Body, "inventoryValue").IsZero())
	assert.True(t, dec(t, res.Body, "lowStockThreshold").Equal(decimal.NewFromInt(10)))
	low, ok := res.Body["lowStockProducts"].([]any)
	require.True(t, ok, res.Body)
	assert.Len(t, low, 1)

	res = api.do(http.MethodGet, "/api/v1/dashboard/stats", api.token(id.New()), nil)
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	assert.EqualValues(t, 0, res.Body["totalProducts"])

	res = api.do(http.MethodGet, "/api/v1/dashboard/stats?lowStockThreshold=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, res.Status, res.Body)
}

func TestRouter_Authentication(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "UNAUTHORIZED", res.Body["code"])

	res = api.do(http.MethodGet, "/api/v1/products", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	other := auth.NewJWTService(auth.DefaultJWTConfig("another-secret"))
	forged, _, err := other.GenerateAccessToken("user-1", api.tenantID.String(), "", []string{"admin"}, true)
	require.NoError(t, err)
	res = api.do(http.MethodGet, "/api/v1/products", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestRouter_RoleGates(t *testing.T) {
	api := newTestAPI(t)
	payables := api.token(api.tenantID, "payables")

	res := api.do(http.MethodPost, "/api/v1/purchase-orders", payables, map[string]any{
		"supplierId": id.New().String(),
		"lines":      []map[string]any{{"productId": id.New().String(), "quantity": "1", "unitPrice": "1"}},
	})
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "FORBIDDEN", res.Body["code"])

	res = api.do(http.MethodPut, "/api/v1/settings", payables, map[string]any{"paymentPrefix": "PAY-"})
	assert.Equal(t, http.StatusForbidden, res.Status)

	// Reads are open to every authenticated user.
	res = api.do(http.MethodGet, "/api/v1/purchase-orders", payables, nil)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, []any{}, res.Body["items"])
}

func TestRouter_TenantIsolation(t *testing.T) {
	api := newTestAPI(t)
	tokA := api.token(api.tenantID, "purchasing")
	tokB := api.token(id.New(), "purchasing")

	res := api.do(http.MethodPost, "/api/v1/products", tokA, map[string]any{"code": "P-1", "name": "Toner"})
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	productID := str(t, res.Body, "id")

	res = api.do(http.MethodGet, "/api/v1/products/"+productID, tokB, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = api.do(http.MethodGet, "/api/v1/products", tokA, nil, "X-Tenant-ID", id.New().String())
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = api.do(http.MethodGet, "/api/v1/products", tokA, nil, "X-Tenant-ID", api.tenantID.String())
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestRouter_ValidationDetails(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(api.tenantID, "purchasing")

	res := api.do(http.MethodPost, "/api/v1/purchase-orders", tok, map[string]any{
		"supplierId": "not-a-uuid",
		"lines":      []map[string]any{{"productId": id.New().String(), "quantity": "0", "unitPrice": "-1"}},
	})
	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "VALIDATION_ERROR", res.Body["code"])

	details, ok := res.Body["details"].(map[string]any)
	require.True(t, ok, res.Body)
	fields, ok := details["fields"].(map[string]any)
	require.True(t, ok, details)
	assert.Contains(t, fields, "supplierId")
	assert.Contains(t, fields, "lines[0].quantity")
	assert.Contains(t, fields, "lines[0].unitPrice")

	res = api.do(http.MethodGet, "/api/v1/purchase-orders/42", tok, nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = api.do(http.MethodGet, "/api/v1/purchase-bills?status=LOST", api.token(api.tenantID, "payables"), nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestRouter_RateLimit(t *testing.T) {
	api := newTestAPI(t, func(cfg *RouterConfig) { cfg.RateLimit = "2-M" })
	tok := api.token(api.tenantID, "purchasing")

	for i := 0; i < 2; i++ {
		res := api.do(http.MethodGet, "/api/v1/products", tok, nil)
		require.Equal(t, http.StatusOK, res.Status)
	}
	res := api.do(http.MethodGet, "/api/v1/products", tok, nil)
	assert.Equal(t, http.StatusTooManyRequests, res.Status)
	assert.Equal(t, "RATE_LIMITED", res.Body["code"])

	// Another tenant has its own budget.
	res = api.do(http.MethodGet, "/api/v1/products", api.token(id.New(), "purchasing"), nil)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestRouter_InvalidRateLimit(t *testing.T) {
	store := memory.NewStore()
	_, err := NewRouter(RouterConfig{
		Logger:    logger.NewFromZap(zap.NewNop()),
		TxManager: store,
		RateLimit: "fast",
	})
	assert.Error(t, err)
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t, func(cfg *RouterConfig) {
		cfg.HealthChecks = map[string]handlers.HealthCheck{
			"database": func(context.Context) error { return nil },
			"broker":   func(context.Context) error { return errors.New("connection refused") },
		}
	})

	res := api.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "test", res.Body["version"])

	res = api.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)
	checks := res.Body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unhealthy: connection refused", checks["broker"])
}
