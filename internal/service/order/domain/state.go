// internal/service/order/domain/state.go
package domain

import (
	"fmt"
	"strings"
)

// OrderStatus 定义了订单的生命周期状态
type OrderStatus string

const (
	StatusCreated         OrderStatus = "CREATED"         // 订单已记录
	StatusProcessing      OrderStatus = "PROCESSING"      // 处理中
	StatusPaymentDue      OrderStatus = "PAYMENTDUE"      // 等待支付
	StatusPickupAvailable OrderStatus = "PICKUPAVAILABLE" // 可自提
	StatusInTransit       OrderStatus = "INTRANSIT"       // 运输中
	StatusDelivered       OrderStatus = "DELIVERED"       // 已送达
	StatusCancelled       OrderStatus = "CANCELLED"       // 已取消
	StatusProblem         OrderStatus = "PROBLEM"         // 异常
	StatusReturned        OrderStatus = "RETURNED"        // 已退货
)

var knownStatuses = map[OrderStatus]struct{}{
	StatusCreated:         {},
	StatusProcessing:      {},
	StatusPaymentDue:      {},
	StatusPickupAvailable: {},
	StatusInTransit:       {},
	StatusDelivered:       {},
	StatusCancelled:       {},
	StatusProblem:         {},
	StatusReturned:        {},
}

// IsActive 表示订单仍在履约流程中，此时不允许删除。
func (s OrderStatus) IsActive() bool {
	switch s {
	case StatusProcessing, StatusPaymentDue, StatusPickupAvailable, StatusInTransit:
		return true
	}
	return false
}

// ParseOrderStatus 解析状态字符串，空串视为 CREATED。
func ParseOrderStatus(s string) (OrderStatus, error) {
	if s == "" {
		return StatusCreated, nil
	}
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownStatuses[st]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidOrder, s)
	}
	return st, nil
}
