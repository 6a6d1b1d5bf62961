package port

import (
	"context"

	"orderhub/internal/service/order/domain"
)

// InventoryService 是库存服务的出站端口。
// 下游的业务错误会被翻译为 domain 中的错误（ErrInventoryNotFound、ErrBadRequest、ErrRemoteService）。
type InventoryService interface {
	GetInventory(ctx context.Context, id int64) (*domain.InventoryRecord, error)

	// ListInventoryByProduct 按库存服务返回的顺序列出商品的全部库存记录。
	ListInventoryByProduct(ctx context.Context, productID int64) ([]domain.InventoryRecord, error)

	UpdateInventory(ctx context.Context, record *domain.InventoryRecord) (*domain.InventoryRecord, error)
}
