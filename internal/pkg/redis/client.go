// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orderhub/internal/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

// Nil 是 key 不存在时 go-redis 返回的错误。
var Nil = goredis.Nil

// Client 封装 go-redis 的 UniversalClient，单机与集群地址都可以使用。
type Client struct {
	rdb goredis.UniversalClient
}

// NewClient 根据逗号分隔的地址列表创建客户端，并做一次 PING。
func NewClient(ctx context.Context, addrs, password string, db int) (*Client, error) {
	var list []string
	for _, a := range strings.Split(addrs, ",") {
		if a = strings.TrimSpace(a); a != "" {
			list = append(list, a)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("redis: no address configured")
	}

	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        list,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %v: %w", list, err)
	}

	logger.Ctx(ctx).Info().Strs("addrs", list).Msg("✅ Connected to Redis")
	return &Client{rdb: rdb}, nil
}

// NewFromUniversal 直接包装一个已有的客户端。
func NewFromUniversal(rdb goredis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

// GetClient 返回底层客户端。
func (c *Client) GetClient() goredis.UniversalClient {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
