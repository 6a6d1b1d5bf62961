package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/pkg/logger"
	"orderhub/internal/service/order/application"
	"orderhub/internal/service/order/domain"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// IdempotencyHeader 是创建订单时携带幂等键的请求头
const IdempotencyHeader = "Idempotency-Key"

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	orders *application.OrderService
	items  *application.ItemService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(orders *application.OrderService, items *application.ItemService) *OrderHandler {
	return &OrderHandler{orders: orders, items: items}
}

// RegisterRoutes 在 chi 路由上注册所有 /api 路由
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}", h.updateOrder)
			r.Delete("/{id}", h.deleteOrder)
		})
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.listItems)
			r.Post("/", h.createItem)
			r.Get("/{id}", h.getItem)
			r.Put("/{id}", h.updateItem)
			r.Delete("/{id}", h.deleteItem)
		})
	})
}

func extract(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	out := make([]*application.OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, application.ToOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	id, ok := pathID(ctx, w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToOrderResponse(order))
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req application.OrderRequest
	if !decode(ctx, w, r, &req) {
		return
	}
	order, err := h.orders.CreateOrder(ctx, &req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, application.ToOrderResponse(order))
}

func (h *OrderHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	id, ok := pathID(ctx, w, r)
	if !ok {
		return
	}
	var req application.OrderRequest
	if !decode(ctx, w, r, &req) {
		return
	}
	order, err := h.orders.UpdateOrder(ctx, id, &req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToOrderResponse(order))
}

func (h *OrderHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	id, ok := pathID(ctx, w, r)
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	items, err := h.items.ListItems(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	out := make([]application.ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, application.ToItemResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) getItem(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	id, ok := pathID(ctx, w, r)
	if !ok {
		return
	}
	item, err := h.items.GetItem(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToItemResponse(item))
}

func (h *OrderHandler) createItem(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req application.ItemRequest
	if !decode(ctx, w, r, &req) {
		return
	}
	item := req.ToDomain()
	item.ID = 0
	created, err := h.items.CreateItem(ctx, &item)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, application.ToItemResponse(created))
}

func (h *OrderHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	id, ok := pathID(ctx, w, r)
	if !ok {
		return
	}
	var req application.ItemRequest
	if !decode(ctx, w, r, &req) {
		return
	}
	item := req.ToDomain()
	updated, err := h.items.UpdateItem(ctx, id, &item)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToItemResponse(updated))
}

func (h *OrderHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	id, ok := pathID(ctx, w, r)
	if !ok {
		return
	}
	if err := h.items.DeleteItem(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, w, domain.ErrBadRequest)
		return 0, false
	}
	return id, true
}

func decode(ctx context.Context, w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("Invalid request body")
		writeError(ctx, w, domain.ErrBadRequest)
		return false
	}
	return true
}

// ErrorResponse 是所有错误响应的统一格式
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf 根据错误类型返回 HTTP 状态码与错误码
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order-not-found"
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, "item-not-found"
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "product-not-found"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, "customer-not-found"
	case errors.Is(err, domain.ErrInventoryNotFound):
		return http.StatusNotFound, "inventory-not-found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not-found"
	case errors.Is(err, domain.ErrStockUnavailable),
		errors.Is(err, domain.ErrProductNotAvailable):
		return http.StatusConflict, "product-not-available"
	case errors.Is(err, domain.ErrOrderStatusActive):
		return http.StatusConflict, "order-status-active"
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidItem),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, "bad-request"
	case errors.Is(err, httpclient.ErrRetryExhausted):
		return http.StatusServiceUnavailable, "service-unavailable"
	case errors.Is(err, domain.ErrRemoteService):
		return http.StatusBadGateway, "remote-service-error"
	default:
		return http.StatusInternalServerError, "internal-error"
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Ctx(ctx).Error().Err(err).Int("status", status).Msg("Request failed")
	}
	if errors.Is(err, httpclient.ErrRetryExhausted) {
		msg = httpclient.ErrRetryExhausted.Error()
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
