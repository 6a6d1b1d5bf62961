// internal/service/order/application/stock_reconciler.go
package application

import (
	"context"
	"errors"
	"fmt"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/metrics"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/domain/port"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	opReserve = "reserve"
	opRelease = "release"
)

// StockReconciler 负责在远程库存记录上为商品行预占或释放库存。
//
// 已绑定库存记录的商品行优先使用绑定的记录；否则按库存服务返回的顺序扫描该商品的所有记录，
// 取第一条满足条件的记录。可用量未知的记录一律跳过。
type StockReconciler struct {
	inventory port.InventoryService
	items     domain.ItemRepository
	tracer    trace.Tracer
}

func NewStockReconciler(inventory port.InventoryService, items domain.ItemRepository, tracer trace.Tracer) *StockReconciler {
	return &StockReconciler{inventory: inventory, items: items, tracer: tracer}
}

// Reserve 为商品行预占 quantity 件库存。
// 没有任何一条记录能满足时返回 ErrStockUnavailable，此时不会修改任何记录。
func (r *StockReconciler) Reserve(ctx context.Context, item *domain.Item, quantity int) (err error) {
	ctx, span := r.startSpan(ctx, "stock.Reserve", item, quantity)
	defer func() { r.finish(span, opReserve, err) }()

	if quantity < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return nil
	}

	if item.IsBound() {
		rec, ok, err := r.boundRecord(ctx, item)
		if err != nil {
			return err
		}
		if ok && rec.CanSatisfy(quantity) {
			if err := r.apply(ctx, rec, -quantity); err != nil {
				return err
			}
			span.SetAttributes(attribute.Int64("inventory.id", rec.ID))
			logger.Ctx(ctx).Info().
				Int64("inventory_id", rec.ID).
				Int("quantity", quantity).
				Msg("Reserved stock on bound inventory record")
			return nil
		}
		logger.Ctx(ctx).Info().
			Int64("inventory_id", *item.InventoryID).
			Int("quantity", quantity).
			Msg("Bound inventory record cannot cover reservation, scanning product records")
	}

	records, err := r.inventory.ListInventoryByProduct(ctx, item.ProductID)
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		if !rec.CanSatisfy(quantity) {
			continue
		}
		if err := r.apply(ctx, rec, -quantity); err != nil {
			return err
		}
		if err := r.bind(ctx, item, rec.ID); err != nil {
			return err
		}
		span.SetAttributes(attribute.Int64("inventory.id", rec.ID))
		logger.Ctx(ctx).Info().
			Int64("inventory_id", rec.ID).
			Int64("product_id", item.ProductID).
			Int("quantity", quantity).
			Msg("Reserved stock on first matching inventory record")
		return nil
	}

	return fmt.Errorf("%w: product %d, requested %d, %d records checked",
		domain.ErrStockUnavailable, item.ProductID, quantity, len(records))
}

// Release 把 quantity 件库存还给商品行绑定的记录；未绑定时还给该商品第一条可用量已知的记录并绑定。
func (r *StockReconciler) Release(ctx context.Context, item *domain.Item, quantity int) (err error) {
	ctx, span := r.startSpan(ctx, "stock.Release", item, quantity)
	defer func() { r.finish(span, opRelease, err) }()

	if quantity < 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return nil
	}

	if item.IsBound() {
		rec, ok, err := r.boundRecord(ctx, item)
		if err != nil {
			return err
		}
		if _, known := rec.Available(); ok && known {
			if err := r.apply(ctx, rec, quantity); err != nil {
				return err
			}
			span.SetAttributes(attribute.Int64("inventory.id", rec.ID))
			logger.Ctx(ctx).Info().
				Int64("inventory_id", rec.ID).
				Int("quantity", quantity).
				Msg("Released stock to bound inventory record")
			return nil
		}
	}

	records, err := r.inventory.ListInventoryByProduct(ctx, item.ProductID)
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		if _, known := rec.Available(); !known {
			continue
		}
		if err := r.apply(ctx, rec, quantity); err != nil {
			return err
		}
		if err := r.bind(ctx, item, rec.ID); err != nil {
			return err
		}
		span.SetAttributes(attribute.Int64("inventory.id", rec.ID))
		logger.Ctx(ctx).Info().
			Int64("inventory_id", rec.ID).
			Int64("product_id", item.ProductID).
			Int("quantity", quantity).
			Msg("Released stock to first inventory record of product")
		return nil
	}

	return fmt.Errorf("%w: no inventory record to release %d units of product %d",
		domain.ErrInventoryNotFound, quantity, item.ProductID)
}

// boundRecord 读取商品行绑定的记录。记录已被删除时 ok 为 false，调用方转而扫描。
func (r *StockReconciler) boundRecord(ctx context.Context, item *domain.Item) (*domain.InventoryRecord, bool, error) {
	rec, err := r.inventory.GetInventory(ctx, *item.InventoryID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Ctx(ctx).Warn().Int64("inventory_id", *item.InventoryID).Msg("Bound inventory record no longer exists")
		return &domain.InventoryRecord{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (r *StockReconciler) apply(ctx context.Context, rec *domain.InventoryRecord, delta int) error {
	rec.Adjust(delta)
	if _, err := r.inventory.UpdateInventory(ctx, rec); err != nil {
		return fmt.Errorf("update inventory %d: %w", rec.ID, err)
	}
	return nil
}

// bind 记录新的库存绑定；已持久化的商品行立即保存，未持久化的由调用方随商品行一起保存。
func (r *StockReconciler) bind(ctx context.Context, item *domain.Item, inventoryID int64) error {
	if item.InventoryID != nil && *item.InventoryID == inventoryID {
		return nil
	}
	item.BindInventory(inventoryID)
	if item.ID == 0 {
		return nil
	}
	if err := r.items.Save(ctx, item); err != nil {
		return fmt.Errorf("persist inventory binding of item %d: %w", item.ID, err)
	}
	return nil
}

func (r *StockReconciler) startSpan(ctx context.Context, name string, item *domain.Item, quantity int) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.Int64("item.id", item.ID),
		attribute.Int64("product.id", item.ProductID),
		attribute.Int("quantity", quantity),
	)
	return ctx, span
}

func (r *StockReconciler) finish(span trace.Span, op string, err error) {
	defer span.End()
	switch {
	case err == nil:
		metrics.StockOperations.WithLabelValues(op, "success").Inc()
	case errors.Is(err, domain.ErrStockUnavailable):
		metrics.StockOperations.WithLabelValues(op, "unavailable").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock unavailable")
	default:
		metrics.StockOperations.WithLabelValues(op, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
