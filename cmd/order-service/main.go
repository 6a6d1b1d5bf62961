// cmd/order-service/main.go
package main

import (
	"context"
	"os"

	"orderhub/internal/pkg/bootstrap"
	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/pkg/logger"
	"orderhub/internal/pkg/mq"
	"orderhub/internal/pkg/redis"
	"orderhub/internal/service/order/application"
	"orderhub/internal/service/order/domain"
	"orderhub/internal/service/order/infrastructure"
	"orderhub/internal/service/order/infrastructure/adapter"
	"orderhub/internal/service/order/interfaces"

	"go.opentelemetry.io/otel"
)

const serviceName = "order-service"

// main 函数是应用的"组装根" (Composition Root)
func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Init(serviceName, "info")
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("failed to load config")
	}

	err = bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Config:           cfg,
		RegisterHandlers: registerHandlers,
	})
	if err != nil {
		logger.Ctx(context.Background()).Error().Err(err).Msg("order-service stopped with error")
		os.Exit(1)
	}
}

func registerHandlers(ctx context.Context, appCtx *bootstrap.AppCtx) error {
	cfg := appCtx.Config
	tracer := otel.Tracer(serviceName)

	// 1. 持久化：配置了 MySQL 时使用 GORM，否则使用内存仓储
	var (
		orderRepo domain.OrderRepository = infrastructure.NewMemoryOrderRepository()
		itemRepo  domain.ItemRepository  = infrastructure.NewMemoryItemRepository()
	)
	if cfg.Infra.MySQL.Enabled {
		db, err := infrastructure.NewMySQL(ctx, cfg.Infra.MySQL.FormatDSN())
		if err != nil {
			return err
		}
		if err := infrastructure.AutoMigrate(db); err != nil {
			return err
		}
		appCtx.OnShutdown(func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		orderRepo = infrastructure.NewGormOrderRepository(db)
		itemRepo = infrastructure.NewGormItemRepository(db)
	} else {
		logger.Ctx(ctx).Warn().Msg("MySQL disabled, orders are kept in memory")
	}

	// 2. 下游服务：所有调用都经过带重试的 httpclient
	client := httpclient.NewClient(tracer,
		httpclient.WithRetryPolicy(cfg.RetryPolicy()),
		httpclient.WithTimeout(cfg.Retry.Timeout),
	)
	inventory := adapter.NewInventoryHTTPAdapter(client, appCtx.Resolver)
	catalog := adapter.NewCatalogHTTPAdapter(client, appCtx.Resolver)
	customers := adapter.NewCustomerHTTPAdapter(client, appCtx.Resolver)

	// 3. 可选组件：订单事件与幂等键
	var opts []application.OrderServiceOption
	if cfg.Infra.Kafka.Enabled {
		publisher := infrastructure.NewOrderEventKafkaPublisher(mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topic))
		appCtx.OnShutdown(func(context.Context) error { return publisher.Close() })
		opts = append(opts, application.WithEventPublisher(publisher))
	}
	if cfg.Infra.Redis.Enabled {
		rc, err := redis.NewClient(ctx, cfg.Infra.Redis.Addrs, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
		if err != nil {
			return err
		}
		appCtx.OnShutdown(func(context.Context) error { return rc.Close() })
		opts = append(opts, application.WithIdempotencyStore(infrastructure.NewRedisIdempotencyStore(rc, 0)))
	}

	// 4. 业务服务与路由
	stock := application.NewStockReconciler(inventory, itemRepo, tracer)
	items := application.NewItemService(itemRepo, stock, tracer)
	orders := application.NewOrderService(orderRepo, items, catalog, customers, tracer, opts...)

	interfaces.NewOrderHandler(orders, items).RegisterRoutes(appCtx.Router)
	logger.Ctx(ctx).Info().
		Bool("mysql", cfg.Infra.MySQL.Enabled).
		Bool("kafka", cfg.Infra.Kafka.Enabled).
		Bool("redis", cfg.Infra.Redis.Enabled).
		Msg("✅ Order service wired")
	return nil
}
