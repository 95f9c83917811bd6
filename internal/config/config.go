package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	StorageDriver  string        `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	MigrationsPath string        `env:"MIGRATIONS_PATH" envDefault:"./migrations"`
	JWTSecret      string        `env:"JWT_SECRET,required"`
	JWTExpiry      time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	Port           int           `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv         string        `env:"APP_ENV" envDefault:"production"`

	DefaultCurrency   string          `env:"DEFAULT_CURRENCY" envDefault:"USD"`
	FeeRate           decimal.Decimal `env:"FEE_RATE" envDefault:"0.005"`
	CardSurcharge     decimal.Decimal `env:"CARD_SURCHARGE" envDefault:"2.00"`
	QuoteTTL          time.Duration   `env:"QUOTE_TTL" envDefault:"60s"`
	TransferMinAmount decimal.Decimal `env:"TRANSFER_MIN_AMOUNT" envDefault:"1"`
	TransferMaxAmount decimal.Decimal `env:"TRANSFER_MAX_AMOUNT" envDefault:"100000"`

	StepTimeout     time.Duration `env:"STEP_TIMEOUT" envDefault:"10s"`
	StepMaxAttempts int           `env:"STEP_MAX_ATTEMPTS" envDefault:"3"`
	StepBackoff     time.Duration `env:"STEP_BACKOFF" envDefault:"200ms"`
	AutoAdvance     bool          `env:"AUTO_ADVANCE" envDefault:"false"`
	WorkerPoolSize  int           `env:"WORKER_POOL_SIZE" envDefault:"32"`

	ForexServiceURL   string        `env:"FOREX_SERVICE_URL"`
	PaymentNetworkURL string        `env:"PAYMENT_NETWORK_URL"`
	RedisURL          string        `env:"REDIS_URL"`
	RateStaleFallback time.Duration `env:"RATE_STALE_FALLBACK" envDefault:"15m"`

	KafkaBrokers       string        `env:"KAFKA_BROKERS"`
	KafkaTransferTopic string        `env:"KAFKA_TRANSFER_TOPIC" envDefault:"transfer-events"`
	KafkaWriteTimeout  time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"5s"`

	ReconcileSchedule          string        `env:"RECONCILE_SCHEDULE" envDefault:"@every 1m"`
	ReconcileStaleAfter        time.Duration `env:"RECONCILE_STALE_AFTER" envDefault:"10m"`
	IdempotencyCleanupSchedule string        `env:"IDEMPOTENCY_CLEANUP_SCHEDULE" envDefault:"@hourly"`
	IdempotencyTTL             time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	DemoUserEmail    string          `env:"DEMO_USER_EMAIL" envDefault:"demo@transferpro.local"`
	DemoUserPassword string          `env:"DEMO_USER_PASSWORD" envDefault:"password123"`
	DemoUserBalance  decimal.Decimal `env:"DEMO_USER_BALANCE" envDefault:"10000"`

	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"1m"`
	DBConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.StepMaxAttempts < 1 {
		return fmt.Errorf("STEP_MAX_ATTEMPTS must be at least 1")
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("STEP_TIMEOUT must be positive")
	}
	if !c.TransferMinAmount.IsPositive() || c.TransferMaxAmount.LessThan(c.TransferMinAmount) {
		return fmt.Errorf("transfer limits must satisfy 0 < min <= max")
	}
	return nil
}
