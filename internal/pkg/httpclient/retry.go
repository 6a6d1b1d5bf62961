package httpclient

import (
	"context"
	"errors"
	"time"
)

// ErrRetryExhausted 表示出站调用在重试预算内始终没有拿到任何 HTTP 响应。
// 它对当前请求是致命的，上层只应把它报告为"稍后重试"。
var ErrRetryExhausted = errors.New("there was an error trying to process your request, please try again later")

// RetryPolicy 描述瞬时失败时的重试与退避策略。
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy 共 4 次尝试，间隔 5s、20s、80s。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 5 * time.Second,
		Multiplier:     4.0,
	}
}

// Backoff 返回第 attempt 次失败之后（从 1 开始）需要等待的时间。
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Sleeper 在两次尝试之间阻塞，ctx 结束时提前返回错误。
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
