// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Save 创建或更新订单，创建时回填 ID。订单的商品行需已持久化。
	Save(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找订单，不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id int64) (*Order, error)

	FindAll(ctx context.Context) ([]*Order, error)

	Delete(ctx context.Context, id int64) error
}

// ItemRepository 定义了商品行的持久化接口。
type ItemRepository interface {
	// Save 创建或更新商品行，创建时回填 ID。
	Save(ctx context.Context, item *Item) error

	// FindByID 不存在时返回 ErrItemNotFound。
	FindByID(ctx context.Context, id int64) (*Item, error)

	FindAll(ctx context.Context) ([]*Item, error)

	Delete(ctx context.Context, id int64) error
}
