// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 出站调用结果标签
const (
	OutcomeSuccess   = "success"
	OutcomeHTTPError = "http_error"
	OutcomeTransport = "transport_error"
	OutcomeDecode    = "decode_error"
)

var (
	// OutboundRequests 统计每一次出站尝试（含重试）。
	OutboundRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderhub",
		Name:      "outbound_requests_total",
		Help:      "Outbound HTTP attempts to downstream services.",
	}, []string{"service", "method", "outcome"})

	OutboundRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderhub",
		Name:      "outbound_retries_total",
		Help:      "Retries scheduled after a transient outbound failure.",
	}, []string{"service"})

	OutboundTerminalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderhub",
		Name:      "outbound_terminal_failures_total",
		Help:      "Outbound calls that exhausted the retry budget.",
	}, []string{"service"})

	OutboundLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orderhub",
		Name:      "outbound_request_duration_seconds",
		Help:      "Latency of single outbound attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method"})

	// StockOperations 统计库存预占/释放的结果。
	StockOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderhub",
		Name:      "stock_operations_total",
		Help:      "Stock reservations and releases by result.",
	}, []string{"operation", "result"})
)
