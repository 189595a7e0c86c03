package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Redis   RedisConfig
	Stripe  StripeConfig
	Sheets  SheetsConfig
	Webhook WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHEETSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"SHEETSYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHEETSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHEETSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"SHEETSYNC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHEETSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"SHEETSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHEETSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHEETSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHEETSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHEETSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHEETSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHEETSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SHEETSYNC_STRIPE_API_KEY" required:"true"`
	Secret string `envconfig:"SHEETSYNC_STRIPE_SECRET" required:"true"`
	Env    string `envconfig:"SHEETSYNC_STRIPE_ENV" default:"test"`
}

// Environment reports the raw configured Stripe environment string.
func (s StripeConfig) Environment() string {
	return s.Env
}

type SheetsConfig struct {
	SpreadsheetID       string `envconfig:"SHEETSYNC_SHEETS_SPREADSHEET_ID" required:"true"`
	SheetName           string `envconfig:"SHEETSYNC_SHEETS_SHEET_NAME" default:"Subscriptions"`
	ServiceAccountEmail string `envconfig:"SHEETSYNC_SHEETS_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey          string `envconfig:"SHEETSYNC_SHEETS_PRIVATE_KEY"`
	CredentialsJSON     string `envconfig:"SHEETSYNC_SHEETS_CREDENTIALS_JSON"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SHEETSYNC_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}
