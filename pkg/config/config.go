package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	GatewayModeHTTP     = "http"
	GatewayModeRedis    = "redis"
	GatewayModePostgres = "postgres"
)

type Config struct {
	App      AppConfig
	Cart     CartConfig
	Gateway  GatewayConfig
	Redis    RedisConfig
	DB       DBConfig
	Identity IdentityConfig
	JWT      JWTConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("cartside", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTSIDE_APP_ENV" default:"dev"`
	Port         string `envconfig:"CARTSIDE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CARTSIDE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTSIDE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CartConfig tunes the lifecycle timers and the shipping policy.
type CartConfig struct {
	// QuietPeriod is how long the autosave scheduler waits after the last
	// mutation before persisting.
	QuietPeriod time.Duration `envconfig:"CARTSIDE_CART_QUIET_PERIOD" default:"500ms"`
	// AbandonmentAfter is the inactivity window before a non-empty cart is
	// reported as abandoned. Demo environments typically set 5m.
	AbandonmentAfter      time.Duration   `envconfig:"CARTSIDE_CART_ABANDONMENT_AFTER" default:"60m"`
	FreeShippingThreshold decimal.Decimal `envconfig:"CARTSIDE_CART_FREE_SHIPPING_THRESHOLD" default:"100"`
	FlatShippingFee       decimal.Decimal `envconfig:"CARTSIDE_CART_FLAT_SHIPPING_FEE" default:"9.90"`
}

type GatewayConfig struct {
	Mode    string        `envconfig:"CARTSIDE_GATEWAY_MODE" default:"http"`
	BaseURL string        `envconfig:"CARTSIDE_GATEWAY_BASE_URL"`
	Timeout time.Duration `envconfig:"CARTSIDE_GATEWAY_TIMEOUT" default:"10s"`
}

func (g GatewayConfig) validate() error {
	switch g.Mode {
	case GatewayModeHTTP:
		if strings.TrimSpace(g.BaseURL) == "" {
			return fmt.Errorf("%s is required when the gateway mode is http", EnvGatewayBaseURL)
		}
	case GatewayModeRedis, GatewayModePostgres:
	default:
		return fmt.Errorf("unknown gateway mode %q", g.Mode)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTSIDE_REDIS_URL"`
	Address      string        `envconfig:"CARTSIDE_REDIS_ADDR"`
	Password     string        `envconfig:"CARTSIDE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTSIDE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTSIDE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTSIDE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTSIDE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTSIDE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTSIDE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	DSN             string        `envconfig:"CARTSIDE_DB_DSN"`
	MaxOpenConns    int           `envconfig:"CARTSIDE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTSIDE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTSIDE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTSIDE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IdentityConfig controls where the durable anonymous session key lives.
type IdentityConfig struct {
	// StatePath is the file the session key is persisted to. Empty means a
	// cartside/session file under the user config directory.
	StatePath string `envconfig:"CARTSIDE_IDENTITY_STATE_PATH"`
}

type JWTConfig struct {
	Secret string `envconfig:"CARTSIDE_JWT_SECRET"`
	Issuer string `envconfig:"CARTSIDE_JWT_ISSUER" default:"cartside"`
}
