package interfaces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/service/order/application"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/infrastructure"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

// stubInventory 每个商品只有一条库存记录，ID 与商品 ID 相同。
type stubInventory struct {
	stock map[int64]int
	err   error
}

func (s *stubInventory) record(id int64) domain.InventoryRecord {
	n := s.stock[id]
	return domain.InventoryRecord{ID: id, ProductID: id, VendorInventory: &n}
}

func (s *stubInventory) GetInventory(_ context.Context, id int64) (*domain.InventoryRecord, error) {
	if _, ok := s.stock[id]; !ok {
		return nil, domain.ErrInventoryNotFound
	}
	r := s.record(id)
	return &r, nil
}

func (s *stubInventory) ListInventoryByProduct(_ context.Context, productID int64) ([]domain.InventoryRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, ok := s.stock[productID]; !ok {
		return nil, nil
	}
	return []domain.InventoryRecord{s.record(productID)}, nil
}

func (s *stubInventory) UpdateInventory(_ context.Context, r *domain.InventoryRecord) (*domain.InventoryRecord, error) {
	s.stock[r.ID] = *r.VendorInventory
	return r, nil
}

func (s *stubInventory) CreateInventory(_ context.Context, r *domain.InventoryRecord) (*domain.InventoryRecord, error) {
	return r, nil
}

func (s *stubInventory) DeleteInventory(_ context.Context, id int64) error {
	delete(s.stock, id)
	return nil
}

type stubCatalog struct{}

func (stubCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if id == 404 {
		return nil, domain.ErrProductNotFound
	}
	return &domain.Product{ID: id, Price: decimal.NewFromInt(10), Availability: 100}, nil
}

func (stubCatalog) UpdateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	return p, nil
}

type stubCustomers struct{}

func (stubCustomers) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	if id != 1 {
		return nil, domain.ErrCustomerNotFound
	}
	return &domain.Customer{ID: id}, nil
}

type memIdempotency map[string]int64

func (m memIdempotency) Lookup(_ context.Context, key string) (int64, bool, error) {
	id, ok := m[key]
	return id, ok, nil
}

func (m memIdempotency) Remember(_ context.Context, key string, id int64) error {
	m[key] = id
	return nil
}

func newTestRouter(inv *stubInventory) http.Handler {
	tracer := noop.NewTracerProvider().Tracer("test")
	itemRepo := infrastructure.NewMemoryItemRepository()
	stock := application.NewStockReconciler(inv, itemRepo, tracer)
	items := application.NewItemService(itemRepo, stock, tracer)
	orders := application.NewOrderService(infrastructure.NewMemoryOrderRepository(), items, stubCatalog{}, stubCustomers{}, tracer,
		application.WithIdempotencyStore(memIdempotency{}),
	)
	r := chi.NewRouter()
	NewOrderHandler(orders, items).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	inv := &stubInventory{stock: map[int64]int{7: 10}}
	h := newTestRouter(inv)

	rec := do(t, h, http.MethodPost, "/api/orders", `{"customerId":1,"items":[{"productId":7,"quantity":3}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[application.OrderResponse](t, rec)
	assert.Equal(t, "CREATED", created.Status)
	require.Len(t, created.Items, 1)
	assert.True(t, created.Total.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 7, inv.stock[7])

	path := fmt.Sprintf("/api/orders/%d", created.ID)
	rec = do(t, h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := fmt.Sprintf(`{"customerId":1,"status":"PROCESSING","items":[{"id":%d,"productId":7,"quantity":5}]}`, created.Items[0].ID)
	rec = do(t, h, http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, inv.stock[7])

	rec = do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order-status-active", decodeBody[ErrorResponse](t, rec).Error)

	rec = do(t, h, http.MethodPut, path, fmt.Sprintf(`{"customerId":1,"status":"DELIVERED","items":[{"id":%d,"productId":7,"quantity":5}]}`, created.Items[0].ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 10, inv.stock[7])

	rec = do(t, h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order-not-found", decodeBody[ErrorResponse](t, rec).Error)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	inv := &stubInventory{stock: map[int64]int{7: 10}}
	h := newTestRouter(inv)
	body := `{"customerId":1,"items":[{"productId":7,"quantity":2}]}`

	first := do(t, h, http.MethodPost, "/api/orders", body, IdempotencyHeader, "k-1")
	second := do(t, h, http.MethodPost, "/api/orders", body, IdempotencyHeader, "k-1")

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decodeBody[application.OrderResponse](t, first).ID, decodeBody[application.OrderResponse](t, second).ID)
	assert.Equal(t, 8, inv.stock[7])
}

func TestCreateOrderErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{`, http.StatusBadRequest, "bad-request"},
		{"unknown product", `{"customerId":1,"items":[{"productId":404,"quantity":1}]}`, http.StatusNotFound, "product-not-found"},
		{"unknown customer", `{"customerId":2,"items":[{"productId":7,"quantity":1}]}`, http.StatusNotFound, "customer-not-found"},
		{"not enough stock", `{"customerId":1,"items":[{"productId":7,"quantity":50}]}`, http.StatusConflict, "product-not-available"},
		{"bad status", `{"customerId":1,"status":"LOST","items":[{"productId":7,"quantity":1}]}`, http.StatusBadRequest, "bad-request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouter(&stubInventory{stock: map[int64]int{7: 10}})
			rec := do(t, h, http.MethodPost, "/api/orders", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeBody[ErrorResponse](t, rec).Error)
		})
	}
}

func TestRetryExhaustedMapsToServiceUnavailable(t *testing.T) {
	inv := &stubInventory{stock: map[int64]int{7: 10}, err: fmt.Errorf("%w: dial tcp", httpclient.ErrRetryExhausted)}
	h := newTestRouter(inv)

	rec := do(t, h, http.MethodPost, "/api/items", `{"productId":7,"quantity":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "service-unavailable", resp.Error)
	assert.Equal(t, httpclient.ErrRetryExhausted.Error(), resp.Message)
}

func TestItemEndpoints(t *testing.T) {
	inv := &stubInventory{stock: map[int64]int{7: 10}}
	h := newTestRouter(inv)

	rec := do(t, h, http.MethodPost, "/api/items", `{"productId":7,"quantity":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decodeBody[application.ItemResponse](t, rec)
	require.NotNil(t, item.InventoryID)
	assert.Equal(t, 6, inv.stock[7])

	path := fmt.Sprintf("/api/items/%d", item.ID)
	rec = do(t, h, http.MethodPut, path, `{"productId":7,"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 9, inv.stock[7])

	rec = do(t, h, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]application.ItemResponse](t, rec), 1)

	rec = do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 10, inv.stock[7])

	rec = do(t, h, http.MethodGet, "/api/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusOf(t *testing.T) {
	status, code := statusOf(fmt.Errorf("wrap: %w", domain.ErrRemoteService))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "remote-service-error", code)

	status, _ = statusOf(domain.ErrInvalidQuantity)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = statusOf(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
