// internal/service/order/application/order_service.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderService 编排订单的创建、更新与删除。
// 校验商品和客户之后才会触碰库存；更新时按商品行 ID 做差异对比。
type OrderService struct {
	orders    domain.OrderRepository
	items     *ItemService
	catalog   port.CatalogService
	customers port.CustomerDirectory
	publisher port.OrderEventPublisher
	idem      port.IdempotencyStore
	tracer    trace.Tracer
	now       func() time.Time
}

// OrderServiceOption 用于注入可选依赖。
type OrderServiceOption func(*OrderService)

// WithEventPublisher 设置订单事件发布器，未设置时不发布事件。
func WithEventPublisher(p port.OrderEventPublisher) OrderServiceOption {
	return func(s *OrderService) { s.publisher = p }
}

// WithIdempotencyStore 设置创建订单时使用的幂等存储。
func WithIdempotencyStore(store port.IdempotencyStore) OrderServiceOption {
	return func(s *OrderService) { s.idem = store }
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(
	orders domain.OrderRepository,
	items *ItemService,
	catalog port.CatalogService,
	customers port.CustomerDirectory,
	tracer trace.Tracer,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orders:    orders,
		items:     items,
		catalog:   catalog,
		customers: customers,
		tracer:    tracer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrder 根据 ID 查询订单。
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// ListOrders 返回全部订单。
func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orders.FindAll(ctx)
}

// CreateOrder 校验全部商品与客户后，逐个创建商品行（每行预占库存），最后保存订单。
// idempotencyKey 非空且已见过时，直接返回之前创建的订单。
func (s *OrderService) CreateOrder(ctx context.Context, req *OrderRequest, idempotencyKey string) (_ *domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("customer.id", req.CustomerID), attribute.Int("items.count", len(req.Items)))

	if existing, ok := s.replay(ctx, idempotencyKey); ok {
		span.AddEvent("Idempotent replay of order creation.")
		return existing, nil
	}

	status, items, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	products, err := s.checkProductStockAvailability(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	saved := make([]domain.Item, 0, len(items))
	for i := range items {
		items[i].SubTotal = subTotal(products[items[i].ProductID], items[i].Quantity)
		created, err := s.items.CreateItem(ctx, &items[i])
		if err != nil {
			return nil, err
		}
		saved = append(saved, *created)
	}

	order := domain.NewOrder(req.CustomerID, status, saved, s.now())
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	logger.Ctx(ctx).Info().
		Int64("order_id", order.ID).
		Int64("customer_id", order.CustomerID).
		Int("items", len(order.Items)).
		Msg("✅ Order created")

	s.remember(ctx, idempotencyKey, order.ID)
	s.publish(ctx, domain.EventOrderCreated, order)
	return order, nil
}

// UpdateOrder 重新校验后按 ID 对比商品行：
// 没有 ID 或 ID 不在原订单中的行新建；ID 匹配的行按数量差额更新；原订单中不再出现的行删除。
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, req *OrderRequest) (_ *domain.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateOrder")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("order.id", id))

	items, err := s.parseItems(req)
	if err != nil {
		return nil, err
	}
	var status domain.OrderStatus
	if req.Status != "" {
		if status, err = domain.ParseOrderStatus(req.Status); err != nil {
			return nil, err
		}
	}
	products, err := s.checkProductStockAvailability(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomer(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	existing, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	kept := make(map[int64]struct{}, len(items))
	saved := make([]domain.Item, 0, len(items))
	for i := range items {
		in := &items[i]
		in.SubTotal = subTotal(products[in.ProductID], in.Quantity)

		var result *domain.Item
		if _, found := existing.FindItem(in.ID); found {
			kept[in.ID] = struct{}{}
			result, err = s.items.UpdateItem(ctx, in.ID, in)
		} else {
			in.ID = 0
			result, err = s.items.CreateItem(ctx, in)
		}
		if err != nil {
			return nil, err
		}
		saved = append(saved, *result)
	}

	removed := 0
	for _, old := range existing.Items {
		if _, ok := kept[old.ID]; ok {
			continue
		}
		if err := s.items.DeleteItem(ctx, old.ID); err != nil {
			return nil, err
		}
		removed++
	}

	existing.UpdateWith(req.CustomerID, status, saved, s.now())
	if err := s.orders.Save(ctx, existing); err != nil {
		return nil, fmt.Errorf("save order %d: %w", id, err)
	}
	logger.Ctx(ctx).Info().
		Int64("order_id", id).
		Int("items", len(saved)).
		Int("removed", removed).
		Msg("Order updated")

	s.publish(ctx, domain.EventOrderUpdated, existing)
	return existing, nil
}

// DeleteOrder 在订单状态允许时释放并删除所有商品行，然后删除订单。
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "app.DeleteOrder")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("order.id", id))

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := order.EnsureDeletable(); err != nil {
		return err
	}

	for _, it := range order.Items {
		if err := s.items.DeleteItem(ctx, it.ID); err != nil {
			return err
		}
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	logger.Ctx(ctx).Info().Int64("order_id", id).Msg("Order deleted successfully")

	s.publish(ctx, domain.EventOrderDeleted, order)
	return nil
}

func (s *OrderService) parse(req *OrderRequest) (domain.OrderStatus, []domain.Item, error) {
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		return "", nil, err
	}
	items, err := s.parseItems(req)
	return status, items, err
}

func (s *OrderService) parseItems(req *OrderRequest) ([]domain.Item, error) {
	if req.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidOrder)
	}
	items := make([]domain.Item, 0, len(req.Items))
	for _, r := range req.Items {
		it := r.ToDomain()
		if err := it.Validate(); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// checkProductStockAvailability 确认每个商品存在且可用量足够，返回按商品 ID 索引的商品信息。
func (s *OrderService) checkProductStockAvailability(ctx context.Context, items []domain.Item) (map[int64]*domain.Product, error) {
	products := make(map[int64]*domain.Product, len(items))
	for _, it := range items {
		product, err := s.catalog.GetProduct(ctx, it.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: product with id = %d not found", domain.ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if product.Availability <= 0 {
			return nil, fmt.Errorf("%w: product with id: %d is not available in stock",
				domain.ErrProductNotAvailable, it.ProductID)
		}
		if product.Availability < it.Quantity {
			return nil, fmt.Errorf("%w: only %d units of product id: %d are available",
				domain.ErrProductNotAvailable, product.Availability, it.ProductID)
		}
		products[it.ProductID] = product
	}
	return products, nil
}

func (s *OrderService) checkCustomer(ctx context.Context, customerID int64) error {
	_, err := s.customers.GetCustomer(ctx, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: customer with id = %d not found", domain.ErrCustomerNotFound, customerID)
	}
	return err
}

func (s *OrderService) replay(ctx context.Context, key string) (*domain.Order, bool) {
	if key == "" || s.idem == nil {
		return nil, false
	}
	orderID, found, err := s.idem.Lookup(ctx, key)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("idempotency_key", key).Msg("Idempotency lookup failed, creating order")
		return nil, false
	}
	if !found {
		return nil, false
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("order_id", orderID).Msg("Idempotency key points to a missing order")
		return nil, false
	}
	logger.Ctx(ctx).Info().Str("idempotency_key", key).Int64("order_id", orderID).Msg("Returning previously created order")
	return order, true
}

func (s *OrderService) remember(ctx context.Context, key string, orderID int64) {
	if key == "" || s.idem == nil {
		return
	}
	if err := s.idem.Remember(ctx, key, orderID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("idempotency_key", key).Msg("Failed to store idempotency key")
	}
}

// publish 发布订单事件；失败只记录日志和 Span，不影响请求结果。
func (s *OrderService) publish(ctx context.Context, t domain.OrderEventType, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	traceID := logger.TraceID(ctx)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		traceID = sc.TraceID().String()
	}
	event := domain.NewOrderEvent(t, order, traceID, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("event_type", string(t)).
			Int64("order_id", order.ID).
			Msg("Failed to publish order event")
	}
}

func subTotal(p *domain.Product, quantity int) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}
