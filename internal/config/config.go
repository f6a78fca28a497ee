package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/jeovahfialho/stock-etl/pkg/errors"
)

const (
	ProviderYahoo   = "yahoo"
	ProviderPolygon = "polygon"

	// WriteModePerSymbol replaces the destination table after every symbol,
	// so only the last successful symbol survives a run.
	WriteModePerSymbol = "per_symbol"
	// WriteModeBatch accumulates every valid table and replaces the
	// destination once at the end of the run.
	WriteModeBatch = "batch"
)

type Config struct {
	DatabaseURL            string        `envconfig:"POSTGRESQL_STOCK_DB_URL" required:"true" validate:"required"`
	DatabaseMaxConns       int32         `envconfig:"DATABASE_MAX_CONNS" default:"4" validate:"min=1"`
	DatabaseMinConns       int32         `envconfig:"DATABASE_MIN_CONNS" default:"1" validate:"min=0,ltefield=DatabaseMaxConns"`
	DatabaseMaxConnLife    time.Duration `envconfig:"DATABASE_MAX_CONN_LIFE" default:"1h"`
	DatabaseMaxConnIdle    time.Duration `envconfig:"DATABASE_MAX_CONN_IDLE" default:"30m"`
	DatabaseConnectTimeout time.Duration `envconfig:"DATABASE_CONNECT_TIMEOUT" default:"10s" validate:"min=0"`

	Symbols       []string `envconfig:"SYMBOLS" default:"AAPL,GOOGL,MSFT" validate:"required,min=1,dive,required"`
	DaysOfHistory int      `envconfig:"DAYS_OF_HISTORY" default:"2" validate:"min=1"`
	WriteMode     string   `envconfig:"WRITE_MODE" default:"per_symbol" validate:"oneof=per_symbol batch"`
	StrictExit    bool     `envconfig:"STRICT_EXIT" default:"false"`

	Provider            string        `envconfig:"PROVIDER" default:"yahoo" validate:"oneof=yahoo polygon"`
	YahooBaseURL        string        `envconfig:"YAHOO_BASE_URL" default:"https://query1.finance.yahoo.com" validate:"url"`
	PolygonAPIKey       string        `envconfig:"POLYGON_API_KEY" validate:"required_if=Provider polygon"`
	ProviderTimeout     time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`
	ProviderMinInterval time.Duration `envconfig:"PROVIDER_MIN_INTERVAL" default:"500ms"`

	RedisURL string        `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL" validate:"omitempty,url"`

	APIHost         string        `envconfig:"API_HOST" default:"0.0.0.0"`
	APIPort         string        `envconfig:"API_PORT" default:"8000"`
	APIReadTimeout  time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	APIWriteTimeout time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`
	// Admin routes are only mounted when AdminPassword is set.
	AdminUser     string `envconfig:"ADMIN_USER" default:"admin"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// Load reads the environment and validates the result. A missing connection
// string is reported here instead of surfacing later as a connect failure.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read environment", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return &cfg, nil
}

func (c *Config) Development() bool {
	return c.Environment == "development"
}
