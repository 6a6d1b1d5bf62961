// internal/service/order/application/item_service.go
package application

import (
	"context"
	"fmt"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/service/order/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ItemService 管理单个商品行的增删改，库存调整交给 StockReconciler。
type ItemService struct {
	items  domain.ItemRepository
	stock  *StockReconciler
	tracer trace.Tracer
}

func NewItemService(items domain.ItemRepository, stock *StockReconciler, tracer trace.Tracer) *ItemService {
	return &ItemService{items: items, stock: stock, tracer: tracer}
}

// GetItem 根据 ID 查询商品行。
func (s *ItemService) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	return s.items.FindByID(ctx, id)
}

// ListItems 返回全部商品行。
func (s *ItemService) ListItems(ctx context.Context) ([]*domain.Item, error) {
	return s.items.FindAll(ctx)
}

// CreateItem 先预占全部数量，再持久化商品行。
func (s *ItemService) CreateItem(ctx context.Context, item *domain.Item) (_ *domain.Item, err error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateItem")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("product.id", item.ProductID), attribute.Int("quantity", item.Quantity))

	if err := item.Validate(); err != nil {
		return nil, err
	}

	created := *item
	created.ID = 0
	if err := s.stock.Reserve(ctx, &created, created.Quantity); err != nil {
		return nil, err
	}
	if err := s.items.Save(ctx, &created); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}

	logger.Ctx(ctx).Info().
		Int64("item_id", created.ID).
		Int64("product_id", created.ProductID).
		Int("quantity", created.Quantity).
		Msg("Item created")
	return &created, nil
}

// UpdateItem 按数量差额调整库存后保存合并后的商品行。
// delta = 新数量 - 旧数量：为正时追加预占，为负时释放；商品变化时整体释放旧数量再整体预占新数量。
func (s *ItemService) UpdateItem(ctx context.Context, id int64, in *domain.Item) (_ *domain.Item, err error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateItem")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("item.id", id))

	if err := in.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if in.ProductID != existing.ProductID {
		if err := s.stock.Release(ctx, existing, existing.Quantity); err != nil {
			return nil, err
		}
		merged.InventoryID = nil
		merged.UpdateWith(in)
		if err := s.stock.Reserve(ctx, &merged, merged.Quantity); err != nil {
			return nil, err
		}
	} else {
		merged.UpdateWith(in)
		delta := in.Quantity - existing.Quantity
		span.SetAttributes(attribute.Int("quantity.delta", delta))
		switch {
		case delta > 0:
			err = s.stock.Reserve(ctx, &merged, delta)
		case delta < 0:
			err = s.stock.Release(ctx, &merged, -delta)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := s.items.Save(ctx, &merged); err != nil {
		return nil, fmt.Errorf("save item %d: %w", id, err)
	}
	logger.Ctx(ctx).Info().
		Int64("item_id", id).
		Int("old_quantity", existing.Quantity).
		Int("new_quantity", merged.Quantity).
		Msg("Item updated")
	return &merged, nil
}

// DeleteItem 释放商品行的全部数量后删除记录。
func (s *ItemService) DeleteItem(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "app.DeleteItem")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("item.id", id))

	existing, err := s.items.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.stock.Release(ctx, existing, existing.Quantity); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	logger.Ctx(ctx).Info().Int64("item_id", id).Int("released", existing.Quantity).Msg("Item deleted")
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
