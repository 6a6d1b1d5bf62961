// internal/service/order/domain/event.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEventType 是订单领域事件的类型
type OrderEventType string

const (
	EventOrderCreated OrderEventType = "OrderCreated"
	EventOrderUpdated OrderEventType = "OrderUpdated"
	EventOrderDeleted OrderEventType = "OrderDeleted"
)

// OrderEvent 是订单创建、更新、删除成功后发布的事件
type OrderEvent struct {
	EventID    string          `json:"eventId"`
	Type       OrderEventType  `json:"type"`
	OrderID    int64           `json:"orderId"`
	CustomerID int64           `json:"customerId"`
	Status     OrderStatus     `json:"status"`
	ItemCount  int             `json:"itemCount"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurredAt"`
	TraceID    string          `json:"traceId,omitempty"`
}

// NewOrderEvent 根据订单当前状态构造事件。
func NewOrderEvent(t OrderEventType, o *Order, traceID string, now time.Time) OrderEvent {
	return OrderEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status,
		ItemCount:  len(o.Items),
		Total:      o.Total(),
		OccurredAt: now.UTC(),
		TraceID:    traceID,
	}
}
