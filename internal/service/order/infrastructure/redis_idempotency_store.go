package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"orderhub/internal/pkg/redis"

	"github.com/pkg/errors"
)

const (
	idempotencyKeyPattern = "idem:order:create:%s"
	idempotencyTTL        = 24 * time.Hour
)

// RedisIdempotencyStore 是 port.IdempotencyStore 的 Redis 实现。
type RedisIdempotencyStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisIdempotencyStore 创建一个新的幂等存储，ttl 为 0 时使用默认的 24 小时。
func NewRedisIdempotencyStore(redisClient *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = idempotencyTTL
	}
	return &RedisIdempotencyStore{redisClient: redisClient, ttl: ttl}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf(idempotencyKeyPattern, key)
}

// Lookup 查询幂等键对应的订单 ID
func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (int64, bool, error) {
	val, err := s.redisClient.GetClient().Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "lookup idempotency key %s", key)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "corrupt idempotency value for key %s", key)
	}
	return id, true, nil
}

// Remember 记录幂等键。键已存在时保留第一次写入的订单 ID。
func (s *RedisIdempotencyStore) Remember(ctx context.Context, key string, orderID int64) error {
	err := s.redisClient.GetClient().SetNX(ctx, idempotencyKey(key), strconv.FormatInt(orderID, 10), s.ttl).Err()
	return errors.Wrapf(err, "remember idempotency key %s", key)
}
