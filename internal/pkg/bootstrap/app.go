// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/nacos"
	"orderhub/internal/pkg/tracing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// AppCtx 是注册路由时可用的公共组件。
type AppCtx struct {
	Router   chi.Router
	Config   *Config
	Resolver httpclient.Resolver

	mu      sync.Mutex
	closers []func(context.Context) error
}

// OnShutdown 注册一个关停时执行的清理函数，按注册的逆序执行。
func (a *AppCtx) OnShutdown(fn func(context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

func (a *AppCtx) shutdown(ctx context.Context) {
	a.mu.Lock()
	closers := a.closers
	a.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("Error during shutdown cleanup")
		}
	}
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Config      *Config
	// RegisterHandlers 由每个服务注册自己的 HTTP 路由和依赖
	RegisterHandlers func(ctx context.Context, appCtx *AppCtx) error
}

// StartService 封装了微服务的通用启动和优雅关停逻辑，阻塞直到收到退出信号或服务出错。
func StartService(info AppInfo) error {
	cfg := info.Config
	logger.Init(info.ServiceName, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		return err
	}

	appCtx := &AppCtx{Config: cfg}
	appCtx.OnShutdown(tp.Shutdown)

	var resolver httpclient.Resolver = cfg.StaticResolver()
	if cfg.Infra.Nacos.Enabled {
		nc, err := nacos.NewNacosClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return err
		}
		ip, err := getOutboundIP()
		if err != nil {
			return err
		}
		if err := nc.RegisterServiceInstance(info.ServiceName, ip, cfg.App.Port); err != nil {
			return err
		}
		appCtx.OnShutdown(func(context.Context) error {
			defer nc.Close()
			return nc.DeregisterServiceInstance(info.ServiceName, ip, cfg.App.Port)
		})
		resolver = nacos.NewServiceResolver(nc, cfg.BasePaths())
	}
	appCtx.Resolver = resolver

	appCtx.Router = NewRouter()
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(ctx, appCtx); err != nil {
			appCtx.shutdown(context.Background())
			return err
		}
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(cfg.App.Port), Handler: appCtx.Router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Ctx(gctx).Info().Msgf("%s listening on :%d", info.ServiceName, cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Ctx(context.Background()).Info().Msgf("Shutting down service %s...", info.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		appCtx.shutdown(shutdownCtx)
		return err
	})

	err = g.Wait()
	logger.Ctx(context.Background()).Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
	return err
}

// NewRouter 创建带公共中间件、健康检查和指标端点的路由。
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, accessLog)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// getOutboundIP 获取本机对外通信使用的 IP，用于服务注册。
func getOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
