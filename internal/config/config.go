package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Feed drivers accepted by FEED_DRIVER.
const (
	FeedRedis    = "redis"
	FeedPostgres = "postgres"
	FeedMemory   = "memory"
)

// Config is the process configuration, read from the environment (and .env).
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"host=localhost user=user password=password dbname=livechat port=5432 sslmode=disable"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string `env:"JWT_SECRET"`

	FeedDriver string `env:"FEED_DRIVER" envDefault:"redis"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"crm.chat-events"`

	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramOpsChatID int64  `env:"TELEGRAM_OPS_CHAT_ID"`

	Locale string `env:"LOCALE" envDefault:"pt-BR"`

	WaitingAbandonAfter time.Duration `env:"WAITING_ABANDON_AFTER" envDefault:"15m"`
	DefaultMaxChats     int           `env:"DEFAULT_MAX_CHATS" envDefault:"5"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have no usable default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.FeedDriver {
	case FeedRedis, FeedPostgres, FeedMemory:
	default:
		return fmt.Errorf("unknown FEED_DRIVER %q", c.FeedDriver)
	}
	if c.DefaultMaxChats <= 0 {
		return fmt.Errorf("DEFAULT_MAX_CHATS must be positive, got %d", c.DefaultMaxChats)
	}
	if c.WaitingAbandonAfter <= 0 {
		c.WaitingAbandonAfter = DefaultWaitingAbandonAfter
	}
	return nil
}

// KafkaEnabled reports whether CRM events should be produced.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// TelegramEnabled reports whether ops alerts should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramOpsChatID != 0
}
