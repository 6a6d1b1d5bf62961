// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"orderhub/internal/pkg/httpclient"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "configs/order-service.yaml"

// Config 是服务的全部配置，来源优先级：环境变量 > YAML 文件 > 默认值。
type Config struct {
	App      AppConfig      `yaml:"app"`
	Infra    InfraConfig    `yaml:"infra"`
	Services ServicesConfig `yaml:"services"`
	Retry    RetryConfig    `yaml:"retry"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type InfraConfig struct {
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Jaeger JaegerConfig `yaml:"jaeger"`
	Nacos  NacosConfig  `yaml:"nacos"`
}

// MySQLConfig 未启用时订单与商品行保存在进程内存中。
type MySQLConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addrs    string `yaml:"addrs"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addrs     string `yaml:"addrs"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

// ServiceEndpoint 描述一个下游服务：静态基础 URL，或通过 Nacos 发现时使用的服务名与路径前缀。
type ServiceEndpoint struct {
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	BasePath string `yaml:"base_path"`
}

type ServicesConfig struct {
	Inventory ServiceEndpoint `yaml:"inventory"`
	Product   ServiceEndpoint `yaml:"product"`
	Customer  ServiceEndpoint `yaml:"customer"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	Multiplier     float64       `yaml:"multiplier"`
	Timeout        time.Duration `yaml:"timeout"`
}

var current atomic.Pointer[Config]

// GetCurrentConfig 返回最近一次加载的配置，仅供启动流程使用；业务组件通过构造函数拿到配置。
func GetCurrentConfig() *Config {
	if c := current.Load(); c != nil {
		return c
	}
	return DefaultConfig()
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	retry := httpclient.DefaultRetryPolicy()
	return &Config{
		App: AppConfig{Name: "order-service", Port: 8083, LogLevel: "info"},
		Infra: InfraConfig{
			MySQL:  MySQLConfig{Host: "localhost", Port: 3306, User: "root", Database: "orders"},
			Redis:  RedisConfig{Addrs: "localhost:6379"},
			Kafka:  KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "order-events"},
			Jaeger: JaegerConfig{SampleRatio: 1.0},
			Nacos:  NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},
		},
		Services: ServicesConfig{
			Inventory: ServiceEndpoint{Name: httpclient.InventoryService, BaseURL: "http://localhost:8082/api", BasePath: "/api"},
			Product:   ServiceEndpoint{Name: httpclient.ProductService, BaseURL: "http://localhost:8081/api", BasePath: "/api"},
			Customer:  ServiceEndpoint{Name: httpclient.CustomerService, BaseURL: "http://localhost:8080/api", BasePath: "/api"},
		},
		Retry: RetryConfig{
			MaxAttempts:    retry.MaxAttempts,
			InitialBackoff: retry.InitialBackoff,
			Multiplier:     retry.Multiplier,
			Timeout:        10 * time.Second,
		},
	}
}

// LoadConfig 依次加载 .env、YAML 文件（路径取自 CONFIG_FILE）和环境变量覆盖。
// 默认路径的文件不存在时直接使用默认值；显式指定的文件不存在则报错。
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	path, explicit := os.LookupEnv("CONFIG_FILE")
	if !explicit || path == "" {
		path = defaultConfigFile
	}

	cfg, err := loadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg = DefaultConfig()
		} else {
			return nil, err
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	current.Store(cfg)
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setInt(&cfg.App.Port, "HTTP_PORT")
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.MySQL.DSN = v
		cfg.Infra.MySQL.Enabled = true
	}
	setBool(&cfg.Infra.MySQL.Enabled, "MYSQL_ENABLED")
	setString(&cfg.Infra.Redis.Addrs, "REDIS_ADDRS")
	setBool(&cfg.Infra.Redis.Enabled, "REDIS_ENABLED")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = splitCSV(v)
	}
	setBool(&cfg.Infra.Kafka.Enabled, "KAFKA_ENABLED")
	setString(&cfg.Infra.Jaeger.Endpoint, "JAEGER_ENDPOINT")
	setBool(&cfg.Infra.Nacos.Enabled, "NACOS_ENABLED")
	setString(&cfg.Infra.Nacos.Addrs, "NACOS_SERVER_ADDRS")
	setString(&cfg.Infra.Nacos.Namespace, "NACOS_NAMESPACE")
	setString(&cfg.Infra.Nacos.Group, "NACOS_GROUP")
	setString(&cfg.Services.Inventory.BaseURL, "INVENTORY_SERVICE_URL")
	setString(&cfg.Services.Product.BaseURL, "PRODUCT_SERVICE_URL")
	setString(&cfg.Services.Customer.BaseURL, "CUSTOMER_SERVICE_URL")
}

// Validate 校验启动所必需的配置项。
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid app.port %d", c.App.Port)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoff < 0 || c.Retry.Multiplier < 1 {
		return fmt.Errorf("invalid retry backoff %s x%.2f", c.Retry.InitialBackoff, c.Retry.Multiplier)
	}
	if !c.Infra.Nacos.Enabled {
		for _, ep := range []ServiceEndpoint{c.Services.Inventory, c.Services.Product, c.Services.Customer} {
			if ep.BaseURL == "" {
				return fmt.Errorf("services.%s.base_url is required when nacos is disabled", ep.Name)
			}
		}
	}
	if c.Infra.Kafka.Enabled && (len(c.Infra.Kafka.Brokers) == 0 || c.Infra.Kafka.Topic == "") {
		return errors.New("infra.kafka needs brokers and topic when enabled")
	}
	return nil
}

// RetryPolicy 把配置转换为出站重试策略。
func (c *Config) RetryPolicy() httpclient.RetryPolicy {
	return httpclient.RetryPolicy{
		MaxAttempts:    c.Retry.MaxAttempts,
		InitialBackoff: c.Retry.InitialBackoff,
		Multiplier:     c.Retry.Multiplier,
	}
}

// StaticResolver 用配置里的基础 URL 构造服务解析器。
func (c *Config) StaticResolver() httpclient.StaticResolver {
	return httpclient.StaticResolver{
		c.Services.Inventory.Name: c.Services.Inventory.BaseURL,
		c.Services.Product.Name:   c.Services.Product.BaseURL,
		c.Services.Customer.Name:  c.Services.Customer.BaseURL,
	}
}

// BasePaths 返回 Nacos 发现时各服务的路径前缀。
func (c *Config) BasePaths() map[string]string {
	return map[string]string{
		c.Services.Inventory.Name: c.Services.Inventory.BasePath,
		c.Services.Product.Name:   c.Services.Product.BasePath,
		c.Services.Customer.Name:  c.Services.Customer.BasePath,
	}
}

// FormatDSN 返回 MySQL DSN；未直接给出 DSN 时由各字段拼装。
func (m MySQLConfig) FormatDSN() string {
	if m.DSN != "" {
		return m.DSN
	}
	c := mysql.NewConfig()
	c.User = m.User
	c.Passwd = m.Password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", m.Host, m.Port)
	c.DBName = m.Database
	c.ParseTime = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
