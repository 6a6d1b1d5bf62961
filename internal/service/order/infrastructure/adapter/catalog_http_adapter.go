package adapter

import (
	"context"
	"fmt"
	"net/http"

	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/service/order/domain"
)

// CatalogHTTPAdapter 实现了 port.CatalogService 接口。
type CatalogHTTPAdapter struct {
	remote
}

// NewCatalogHTTPAdapter 创建一个新的商品服务适配器。
func NewCatalogHTTPAdapter(client Invoker, resolver httpclient.Resolver) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{remote{
		client:   client,
		resolver: resolver,
		service:  httpclient.ProductService,
		notFound: domain.ErrProductNotFound,
	}}
}

func (a *CatalogHTTPAdapter) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := a.call(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *CatalogHTTPAdapter) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	var p domain.Product
	if err := a.call(ctx, http.MethodPut, fmt.Sprintf("/products/%d", product.ID), product, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
