// Package config loads runtime configuration from the environment so main
// stays lean. Defaults favor local development; production deployments set
// everything explicitly.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration for the marketplace server.
type Config struct {
	Addr          string `env:"CURIO_ADDR" envDefault:":8080"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"JWT_ISSUER" envDefault:"curio"`
	JWTAudience   string `env:"JWT_AUDIENCE" envDefault:"curio-api"`

	// DatabaseURL selects the postgres-backed stores when set; the engine
	// falls back to in-memory stores when empty.
	DatabaseURL string `env:"DATABASE_URL"`

	// UseTransactions selects the unit-of-work profile: multi-record SQL
	// transactions when true, optimistic compare-and-swap guards when
	// false. Ignored for the in-memory stores, which always serialize
	// per item.
	UseTransactions bool `env:"MARKETPLACE_USE_TRANSACTIONS" envDefault:"true"`

	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`

	Redis        RedisConfig
	Notification NotificationConfig
}

// RedisConfig captures the optional Redis connection used for listing view
// counters and live notification fan-out.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// NotificationConfig tunes the dispatcher and its optional durable queue.
type NotificationConfig struct {
	BufferSize   int      `env:"NOTIFY_BUFFER_SIZE" envDefault:"256"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_NOTIFICATIONS_TOPIC" envDefault:"curio.notifications"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
