package service

import (
	"time"
)

type Config struct {
	DatabaseUri                  string   `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns             int      `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns         int      `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime      int      `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	DatabaseTimeout              int      `envconfig:"DATABASE_TIMEOUT" default:"10"`             // seconds, per ledger operation
	LedgerMaxRetries             int      `envconfig:"LEDGER_MAX_RETRIES" default:"3"`
	SentryDSN                    string   `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate       float64  `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	DatadogAgentUrl              string   `envconfig:"DATADOG_AGENT_URL"`
	LogFilePath                  string   `envconfig:"LOG_FILE_PATH"`
	JWTSecret                    []byte   `envconfig:"JWT_SECRET" required:"true"`
	JWTAccessTokenExpiry         int      `envconfig:"JWT_ACCESS_EXPIRY" default:"3600"` // in seconds, default 1 hour
	Port                         int      `envconfig:"PORT" default:"5005"`
	DefaultRateLimit             int      `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit              int      `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit               int      `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus             bool     `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort               int      `envconfig:"PROMETHEUS_PORT" default:"9092"`
	WebhookUrl                   string   `envconfig:"WEBHOOK_URL"`
	AdminToken                   string   `envconfig:"ADMIN_TOKEN"`
	CorsAllowOrigins             []string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	AllowAccountCreation         bool     `envconfig:"ALLOW_ACCOUNT_CREATION" default:"true"`
	MinPasswordEntropy           int      `envconfig:"MIN_PASSWORD_ENTROPY" default:"0"`
	SeedBalance                  int64    `envconfig:"SEED_BALANCE" default:"10000"`
	AccountNumberPrefix          string   `envconfig:"ACCOUNT_NUMBER_PREFIX" default:"MAK"`
	AccountNumberRetries         int      `envconfig:"ACCOUNT_NUMBER_RETRIES" default:"5"`
	RabbitMQUri                  string   `envconfig:"RABBITMQ_URI"`
	RabbitMQNotificationExchange string   `envconfig:"RABBITMQ_NOTIFICATION_EXCHANGE" default:"bank_notifications"`
	RedisUrl                     string   `envconfig:"REDIS_URL"`
	IdempotencyKeyTTL            int      `envconfig:"IDEMPOTENCY_KEY_TTL" default:"86400"` // in seconds, default 1 day
	KafkaBrokers                 []string `envconfig:"KAFKA_BROKERS"`
	KafkaLedgerTopic             string   `envconfig:"KAFKA_LEDGER_TOPIC" default:"ledger.entries"`
}

func (c *Config) OperationTimeout() time.Duration {
	if c.DatabaseTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.DatabaseTimeout) * time.Second
}
