package port

import "context"

// IdempotencyStore 记录幂等键与已创建订单的对应关系。
type IdempotencyStore interface {
	// Lookup 返回幂等键对应的订单 ID，不存在时 found 为 false。
	Lookup(ctx context.Context, key string) (orderID int64, found bool, err error)
	Remember(ctx context.Context, key string, orderID int64) error
}
