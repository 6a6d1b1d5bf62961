package nacos

import (
	"context"
	"fmt"
	"strings"
)

type instanceDiscoverer interface {
	DiscoverServiceInstance(serviceName string) (string, int, error)
}

// ServiceResolver 通过 Nacos 找到下游服务的一个健康实例，并拼出基础 URL。
// basePaths 为每个服务追加的路径前缀，例如 inventory-service -> /api。
type ServiceResolver struct {
	discoverer instanceDiscoverer
	basePaths  map[string]string
}

func NewServiceResolver(c *Client, basePaths map[string]string) *ServiceResolver {
	return &ServiceResolver{discoverer: c, basePaths: basePaths}
}

func (r *ServiceResolver) Resolve(_ context.Context, service string) (string, error) {
	ip, port, err := r.discoverer.DiscoverServiceInstance(service)
	if err != nil {
		return "", err
	}
	base := fmt.Sprintf("http://%s:%d", ip, port)
	if p := strings.Trim(r.basePaths[service], "/"); p != "" {
		base += "/" + p
	}
	return base, nil
}
