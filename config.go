package slicebox

import (
	"time"

	"go.uber.org/zap"
)

type (
	Config struct {
		Logger     *zap.Logger
		Journal    JournalConfig
		MaxRetries int
	}

	// JournalBackend selects where dispatched actions are recorded
	JournalBackend string

	JournalConfig struct {
		Backend     JournalBackend
		Prefix      string
		Addr        string
		Password    string
		Path        string
		DSN         string
		DB          int
		OpenTimeout time.Duration
	}
)

const (
	BackendMemory   JournalBackend = "memory"
	BackendRedis    JournalBackend = "redis"
	BackendBolt     JournalBackend = "bolt"
	BackendPostgres JournalBackend = "postgres"
)

const (
	DefaultRedisEndpoint      = "localhost:6379"
	DefaultRedisDB            = 0
	DefaultJournalPrefix      = "slicebox"
	DefaultBoltPath           = "slicebox.db"
	DefaultJournalOpenTimeout = 5 * time.Second
	DefaultMaxRetries         = 16
)

func DefaultConfig() Config {
	return Config{
		Logger:     zap.NewNop(),
		Journal:    DefaultJournalConfig(),
		MaxRetries: DefaultMaxRetries,
	}
}

func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Backend:     BackendMemory,
		Prefix:      DefaultJournalPrefix,
		Addr:        DefaultRedisEndpoint,
		DB:          DefaultRedisDB,
		Path:        DefaultBoltPath,
		OpenTimeout: DefaultJournalOpenTimeout,
	}
}

func openTimeout(cfg JournalConfig) time.Duration {
	if cfg.OpenTimeout <= 0 {
		return DefaultJournalOpenTimeout
	}
	return cfg.OpenTimeout
}
