package adapter

import (
	"context"
	"fmt"
	"net/http"

	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/service/order/domain"
)

// CustomerHTTPAdapter 实现了 port.CustomerDirectory 接口。
type CustomerHTTPAdapter struct {
	remote
}

func NewCustomerHTTPAdapter(client Invoker, resolver httpclient.Resolver) *CustomerHTTPAdapter {
	return &CustomerHTTPAdapter{remote{
		client:   client,
		resolver: resolver,
		service:  httpclient.CustomerService,
		notFound: domain.ErrCustomerNotFound,
	}}
}

func (a *CustomerHTTPAdapter) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	if err := a.call(ctx, http.MethodGet, fmt.Sprintf("/customers/%d", id), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
