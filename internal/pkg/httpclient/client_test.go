package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"orderhub/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func newTestClient(sleeper *recordingSleeper, opts ...Option) *Client {
	opts = append([]Option{WithSleeper(sleeper.Sleep)}, opts...)
	return NewClient(noop.NewTracerProvider().Tracer("test"), opts...)
}

func TestInvokeEchoesNotFoundWithoutRetry(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"inventory 7 not found"}`))
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	resp, err := newTestClient(sleeper).Invoke(context.Background(), http.MethodGet, srv.URL+"/inventory/7", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.Empty(t, sleeper.waits)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, resp.IsError())
	assert.JSONEq(t, `{"message":"inventory 7 not found"}`, string(resp.Body))
}

func TestInvokeDoesNotRetryServerErrors(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	resp, err := newTestClient(sleeper).Invoke(context.Background(), http.MethodGet, srv.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestInvokeRetriesTransportErrorsThenFailsTerminally(t *testing.T) {
	attempts := 0
	transportErr := errors.New("connection refused")
	sleeper := &recordingSleeper{}
	client := newTestClient(sleeper, WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		attempts++
		return nil, transportErr
	})))

	resp, err := client.Invoke(context.Background(), http.MethodGet, "http://inventory.local/inventory/1", nil)

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []time.Duration{5 * time.Second, 20 * time.Second, 80 * time.Second}, sleeper.waits)
}

func TestInvokeRecoversAfterTransientFailures(t *testing.T) {
	attempts := 0
	sleeper := &recordingSleeper{}
	client := newTestClient(sleeper, WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("i/o timeout")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"id":1}`)),
			Request:    r,
		}, nil
	})))

	resp, err := client.Invoke(context.Background(), http.MethodGet, "http://inventory.local/inventory/1", nil)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{5 * time.Second, 20 * time.Second}, sleeper.waits)

	var out struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, int64(1), out.ID)
}

func TestInvokeSendsFreshTraceHeaderPerCall(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(TraceHeader))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(&recordingSleeper{})
	for i := 0; i < 2; i++ {
		_, err := client.Invoke(context.Background(), http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
	}

	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.NotEmpty(t, seen[1])
	assert.NotEqual(t, seen[0], seen[1])
}

func TestInvokeKeepsTraceHeaderAcrossRetries(t *testing.T) {
	var seen []string
	attempts := 0
	client := newTestClient(&recordingSleeper{},
		WithTraceIDGenerator(func() string { return "fixed-trace" }),
		WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempts++
			seen = append(seen, r.Header.Get(TraceHeader))
			if attempts == 1 {
				return nil, errors.New("reset by peer")
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{}`)), Request: r}, nil
		})),
	)

	_, err := client.Invoke(context.Background(), http.MethodGet, "http://products.local/products/1", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"fixed-trace", "fixed-trace"}, seen)
}

func TestInvokeSendsJSONBody(t *testing.T) {
	var gotBody, gotContentType, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	body := map[string]int{"vendorInventory": 2}
	_, err := newTestClient(&recordingSleeper{}).Invoke(context.Background(), http.MethodPut, srv.URL+"/inventory/2", body)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"vendorInventory":2}`, gotBody)
}

func TestInvokeStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	attempts := 0
	client := NewClient(noop.NewTracerProvider().Tracer("test"),
		WithSleeper(func(ctx context.Context, d time.Duration) error { return context.Canceled }),
		WithTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
			attempts++
			return nil, errors.New("dial tcp: connection refused")
		})),
	)

	_, err := client.Invoke(context.Background(), http.MethodGet, "http://inventory.local/inventory/1", nil)

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func okResponse(r *http.Request, body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func TestDoRetriesUndecodableSuccessBody(t *testing.T) {
	attempts := 0
	sleeper := &recordingSleeper{}
	client := newTestClient(sleeper, WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return okResponse(r, "<html>gateway</html>"), nil
		}
		return okResponse(r, `{"id":4}`), nil
	})))

	var out struct {
		ID int64 `json:"id"`
	}
	resp, err := client.Do(context.Background(), Call{
		Service: InventoryService,
		Method:  http.MethodGet,
		URL:     "http://inventory.local/inventory/4",
		Out:     &out,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.waits)
	assert.Equal(t, int64(4), out.ID)
}

func TestDoUndecodableBodyExhaustsRetries(t *testing.T) {
	attempts := 0
	sleeper := &recordingSleeper{}
	client := newTestClient(sleeper, WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return okResponse(r, "<html>"), nil
	})))

	var out map[string]any
	resp, err := client.Do(context.Background(), Call{Method: http.MethodGet, URL: "http://products.local/products/1", Out: &out})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Contains(t, err.Error(), "decode response body")
	assert.Equal(t, 4, attempts)
	assert.Len(t, sleeper.waits, 3)
}

func TestDoDoesNotDecodeErrorResponses(t *testing.T) {
	attempts := 0
	client := newTestClient(&recordingSleeper{}, WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts++
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("<html>")), Request: r}, nil
	})))

	var out map[string]any
	resp, err := client.Do(context.Background(), Call{Method: http.MethodGet, URL: "http://products.local/products/9", Out: &out})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Nil(t, out)
}

func TestDoLabelsCallWithLogicalServiceName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	client := NewClient(tp.Tracer("test"), WithSleeper((&recordingSleeper{}).Sleep))

	const service = "label-check-service"
	logical := metrics.OutboundRequests.WithLabelValues(service, http.MethodGet, metrics.OutcomeSuccess)
	byHost := metrics.OutboundRequests.WithLabelValues("127.0.0.1", http.MethodGet, metrics.OutcomeSuccess)
	logicalBefore, hostBefore := testutil.ToFloat64(logical), testutil.ToFloat64(byHost)

	var out map[string]any
	_, err := client.Do(context.Background(), Call{Service: service, Method: http.MethodGet, URL: srv.URL + "/x", Out: &out})
	require.NoError(t, err)

	assert.Equal(t, logicalBefore+1, testutil.ToFloat64(logical))
	assert.Equal(t, hostBefore, testutil.ToFloat64(byHost))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "call-"+service, spans[0].Name())
}

func TestInvokeFallsBackToHostLabel(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	client := NewClient(tp.Tracer("test"),
		WithSleeper((&recordingSleeper{}).Sleep),
		WithTransport(roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return okResponse(r, `{}`), nil
		})),
	)

	_, err := client.Invoke(context.Background(), http.MethodGet, "http://customers.local:8083/customers/1", nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "call-customers.local", spans[0].Name())
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 5*time.Second, p.Backoff(1))
	assert.Equal(t, 20*time.Second, p.Backoff(2))
	assert.Equal(t, 80*time.Second, p.Backoff(3))
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{InventoryService: "http://localhost:8082/api/"}

	u, err := ServiceURL(context.Background(), r, InventoryService, "/inventory/3")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8082/api/inventory/3", u)

	_, err = r.Resolve(context.Background(), ProductService)
	assert.Error(t, err)
}
