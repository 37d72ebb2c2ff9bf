package app

import (
	"os"
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/orderflow/internal/idempotency"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// PostgresDSN пустой означает in-memory хранилище.
	PostgresDSN string
	// KafkaBrokers пустой означает работу без Kafka.
	KafkaBrokers string

	IdempotencyTTL        time.Duration
	IdempotencyMaxEntries int
	CreateTimeout         time.Duration
	OutboxPollInterval    time.Duration
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:              ":8080",
		MetricsAddr:           ":9090",
		IdempotencyTTL:        idempotency.DefaultTTL,
		IdempotencyMaxEntries: idempotency.DefaultMaxEntries,
		CreateTimeout:         0,
		OutboxPollInterval:    time.Second,
	}
}

// LoadConfig читает настройки из переменных окружения поверх значений по умолчанию.
func LoadConfig() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("ORDERFLOW_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("ORDERFLOW_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = envString("ORDERFLOW_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.KafkaBrokers = envString("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.IdempotencyTTL = envDuration("ORDERFLOW_IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.IdempotencyMaxEntries = envInt("ORDERFLOW_IDEMPOTENCY_MAX_ENTRIES", cfg.IdempotencyMaxEntries)
	cfg.CreateTimeout = envDuration("ORDERFLOW_CREATE_TIMEOUT", cfg.CreateTimeout)
	cfg.OutboxPollInterval = envDuration("ORDERFLOW_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)

	return cfg
}

func envString(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
