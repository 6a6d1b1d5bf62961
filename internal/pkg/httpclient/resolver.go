package httpclient

import (
	"context"
	"fmt"
	"strings"
)

// 下游服务名
const (
	InventoryService = "inventory-service"
	ProductService   = "product-service"
	CustomerService  = "customer-service"
)

// Resolver 把服务名解析为基础 URL（例如 http://10.0.0.3:8082/api）。
type Resolver interface {
	Resolve(ctx context.Context, service string) (string, error)
}

// StaticResolver 使用配置里写死的基础 URL。
type StaticResolver map[string]string

func (r StaticResolver) Resolve(_ context.Context, service string) (string, error) {
	base, ok := r[service]
	if !ok || base == "" {
		return "", fmt.Errorf("no base url configured for service %q", service)
	}
	return strings.TrimRight(base, "/"), nil
}

// ServiceURL 拼接服务基础 URL 与路径。
func ServiceURL(ctx context.Context, r Resolver, service, path string) (string, error) {
	base, err := r.Resolve(ctx, service)
	if err != nil {
		return "", err
	}
	return base + "/" + strings.TrimLeft(path, "/"), nil
}
