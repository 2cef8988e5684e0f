package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	NotifyHTTP = "http"
	NotifyWS   = "ws"
	NotifyAuto = "auto"
	NotifyLog  = "log"
)

type AppConfig struct {
	DatabaseURL  string
	RedisURL     string
	StoreBackend string

	FinalizeSchedule  string
	FinalizeStaleDays int

	NotifyMode    string
	NotifyBaseURL string
	NotifyWSURL   string
	NotifyAPIKey  string
	NotifyTimeout time.Duration

	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		FinalizeSchedule:  "@every 1h",
		FinalizeStaleDays: 7,
		NotifyMode:        NotifyLog,
		NotifyTimeout:     5 * time.Second,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))

	if v := strings.TrimSpace(os.Getenv("FINALIZE_SCHEDULE")); v != "" {
		cfg.FinalizeSchedule = v
	}
	if v := strings.TrimSpace(os.Getenv("FINALIZE_STALE_DAYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("FINALIZE_STALE_DAYS must be a positive integer, got %q", v)
		}
		cfg.FinalizeStaleDays = n
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFY_MODE"))); v != "" {
		cfg.NotifyMode = v
	}
	cfg.NotifyBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("NOTIFY_BASE_URL")), "/")
	cfg.NotifyWSURL = strings.TrimSpace(os.Getenv("NOTIFY_WS_URL"))
	cfg.NotifyAPIKey = strings.TrimSpace(os.Getenv("NOTIFY_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("NOTIFY_TIMEOUT")); v != "" { // duration like 3s, or plain seconds
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.NotifyTimeout = d
		} else if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NotifyTimeout = time.Duration(n) * time.Second
		}
	}

	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if cfg.StoreBackend == "" {
		cfg.StoreBackend = autoBackend(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// autoBackend prefers postgres, then redis, then memory.
func autoBackend(cfg *AppConfig) string {
	switch {
	case cfg.DatabaseURL != "":
		return BackendPostgres
	case cfg.RedisURL != "":
		return BackendRedis
	default:
		return BackendMemory
	}
}

func (c *AppConfig) validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.NotifyMode {
	case NotifyLog:
	case NotifyHTTP:
		if c.NotifyBaseURL == "" {
			return errors.New("NOTIFY_BASE_URL is required")
		}
	case NotifyWS:
		if c.NotifyWSURL == "" {
			return errors.New("NOTIFY_WS_URL is required")
		}
	case NotifyAuto:
		if c.NotifyBaseURL == "" {
			return errors.New("NOTIFY_BASE_URL is required")
		}
		if c.NotifyWSURL == "" {
			return errors.New("NOTIFY_WS_URL is required")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_MODE %q", c.NotifyMode)
	}
	return nil
}
