package adapter

import (
	"context"
	"fmt"
	"net/http"

	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/service/order/domain"
)

// InventoryHTTPAdapter 实现了 port.InventoryService 接口。
type InventoryHTTPAdapter struct {
	remote
}

// NewInventoryHTTPAdapter 创建一个新的库存服务适配器。
func NewInventoryHTTPAdapter(client Invoker, resolver httpclient.Resolver) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{remote{
		client:   client,
		resolver: resolver,
		service:  httpclient.InventoryService,
		notFound: domain.ErrInventoryNotFound,
	}}
}

func (a *InventoryHTTPAdapter) GetInventory(ctx context.Context, id int64) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	if err := a.call(ctx, http.MethodGet, fmt.Sprintf("/inventory/%d", id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListInventoryByProduct 保持库存服务返回的顺序，预占时按此顺序选择记录。
func (a *InventoryHTTPAdapter) ListInventoryByProduct(ctx context.Context, productID int64) ([]domain.InventoryRecord, error) {
	var recs []domain.InventoryRecord
	if err := a.call(ctx, http.MethodGet, fmt.Sprintf("/inventory/product/%d", productID), nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (a *InventoryHTTPAdapter) UpdateInventory(ctx context.Context, record *domain.InventoryRecord) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	if err := a.call(ctx, http.MethodPut, fmt.Sprintf("/inventory/%d", record.ID), record, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (a *InventoryHTTPAdapter) CreateInventory(ctx context.Context, record *domain.InventoryRecord) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	if err := a.call(ctx, http.MethodPost, "/inventory", record, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (a *InventoryHTTPAdapter) DeleteInventory(ctx context.Context, id int64) error {
	return a.call(ctx, http.MethodDelete, fmt.Sprintf("/inventory/%d", id), nil, nil)
}
