package port

import (
	"context"

	"orderhub/internal/service/order/domain"
)

// CatalogService 是商品服务的出站端口。
type CatalogService interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// CustomerDirectory 是客户服务的出站端口。
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
}
