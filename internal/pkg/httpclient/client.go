// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader 是每次出站调用携带的关联标识头。
const TraceHeader = "TRACE"

// Response 是一次出站调用拿到的原始响应。
// 下游返回 4xx/5xx 时也以 Response 的形式原样带回，由调用方解释状态码。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsError 判断下游是否返回了业务错误。
func (r *Response) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}

// Decode 将响应体按 JSON 解码到 v。
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("empty response body (status %d)", r.StatusCode)
	}
	return json.Unmarshal(r.Body, v)
}

// Client 是一个可追踪、带重试的 HTTP 客户端，所有对库存/商品/客户服务的调用都经过它。
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client

	policy     RetryPolicy
	sleep      Sleeper
	newTraceID func() string
}

// Option 用于定制 Client。
type Option func(*Client)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.HTTPClient.Transport = rt }
}

func WithTraceIDGenerator(fn func() string) Option {
	return func(c *Client) { c.newTraceID = fn }
}

// NewClient 创建一个新的客户端实例
func NewClient(tracer trace.Tracer, opts ...Option) *Client {
	c := &Client{
		Tracer: tracer,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		policy:     DefaultRetryPolicy(),
		sleep:      sleepContext,
		newTraceID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call 描述一次出站调用。
type Call struct {
	// Service 是下游的逻辑服务名，用作指标标签和 Span 名；为空时取 URL 的主机名。
	Service string
	Method  string
	URL     string
	Body    any
	// Out 非 nil 时，2xx 响应体在同一次尝试内按 JSON 解码到 Out。
	Out any
}

// Invoke 以 URL 主机名作为服务标签执行一次不解码响应体的调用。
func (c *Client) Invoke(ctx context.Context, method, rawURL string, body any) (*Response, error) {
	return c.Do(ctx, Call{Method: method, URL: rawURL, Body: body})
}

// Do 执行一次出站调用。
//
// 只要拿到了 HTTP 响应（无论状态码），调用就结束并原样返回；
// 连接失败、2xx 响应体无法解码等瞬时错误按 RetryPolicy 重试，
// 预算耗尽后返回包装了最后一次错误的 ErrRetryExhausted。
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	method, rawURL, body := call.Method, call.URL, call.Body
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	service := call.Service
	if service == "" {
		service = parsedURL.Hostname()
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	traceID := c.newTraceID()
	ctx = logger.WithTraceID(ctx, traceID)

	ctx, span := c.Tracer.Start(ctx, fmt.Sprintf("call-%s", service), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.url", rawURL),
		attribute.String("http.method", method),
		attribute.String("peer.service", service),
		attribute.String("trace.header", traceID),
	)

	logger.Ctx(ctx).Info().Str("service", service).Str("method", method).Str("url", rawURL).Msg("Calling downstream service")

	var lastErr error
	attempts := c.policy.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.do(ctx, method, rawURL, payload, traceID, service, call.Out)
		if err == nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode), attribute.Int("retry.attempts", attempt))
			if resp.IsError() {
				span.SetStatus(codes.Error, fmt.Sprintf("downstream returned %d", resp.StatusCode))
				logger.Ctx(ctx).Error().
					Int("status", resp.StatusCode).
					Str("url", rawURL).
					Bytes("body", resp.Body).
					Msg("Downstream service answered with an error status")
			} else {
				logger.Ctx(ctx).Info().Int("status", resp.StatusCode).Str("url", rawURL).Msg("Downstream call succeeded")
			}
			return resp, nil
		}

		lastErr = err
		span.RecordError(err, trace.WithAttributes(attribute.Int("retry.attempt", attempt)))
		if attempt == attempts {
			break
		}

		wait := c.policy.Backoff(attempt)
		metrics.OutboundRetries.WithLabelValues(service).Inc()
		logger.Ctx(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Str("url", rawURL).
			Msg("Transient failure calling downstream service, retrying")

		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	metrics.OutboundTerminalFailures.WithLabelValues(service).Inc()
	span.SetStatus(codes.Error, "retry budget exhausted")
	logger.Ctx(ctx).Error().Err(lastErr).Str("url", rawURL).Msg("Retry for downstream call has failed")
	return nil, fmt.Errorf("%w: %s %s: %w", ErrRetryExhausted, method, rawURL, lastErr)
}

// do 执行单次 HTTP 尝试。没有拿到响应，或 2xx 响应体无法解码到 out 时返回 error。
func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte, traceID, service string, out any) (*Response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(TraceHeader, traceID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	metrics.OutboundLatency.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OutboundRequests.WithLabelValues(service, method, metrics.OutcomeTransport).Inc()
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.OutboundRequests.WithLabelValues(service, method, metrics.OutcomeTransport).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	result := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
	if result.IsError() {
		metrics.OutboundRequests.WithLabelValues(service, method, metrics.OutcomeHTTPError).Inc()
		return result, nil
	}
	if out != nil {
		if err := result.Decode(out); err != nil {
			metrics.OutboundRequests.WithLabelValues(service, method, metrics.OutcomeDecode).Inc()
			return nil, fmt.Errorf("decode response body: %w", err)
		}
	}
	metrics.OutboundRequests.WithLabelValues(service, method, metrics.OutcomeSuccess).Inc()
	return result, nil
}
