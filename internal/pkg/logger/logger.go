// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type traceIDKey struct{}

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 配置全局日志器，所有服务在启动时调用一次。
func Init(serviceName, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base = zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()
}

// WithTraceID 把一次出站调用的 TRACE 标识挂到上下文上，Ctx 会自动把它带进日志。
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceID 返回上下文中的 TRACE 标识。
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// Ctx 返回携带追踪信息的日志器。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := base.With()
	if id := TraceID(ctx); id != "" {
		l = l.Str("trace_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.Str("otel_trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
	}
	logger := l.Logger()
	return &logger
}
