package port

import (
	"context"

	"orderhub/internal/service/order/domain"
)

// OrderEventPublisher 发布订单领域事件。
type OrderEventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}
