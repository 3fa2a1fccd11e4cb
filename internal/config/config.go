package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	DatabaseURL string
	RedisURL    string

	OracleBaseURL string
	OracleTimeout time.Duration

	CatalogBaseURL string
	OsuAPIKey      string

	ScoreWebhookURL string
	DebugWebhookURL string
	// PublicDomain is used to build links in webhook embeds.
	PublicDomain string

	LockLease      time.Duration
	LockAttempts   int
	LockRetryDelay time.Duration

	BackgroundWorkers int
	MessageDir        string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":8080",
		OracleBaseURL:     "http://127.0.0.1:8001",
		OracleTimeout:     10 * time.Second,
		CatalogBaseURL:    "https://osu.ppy.sh/api",
		PublicDomain:      "localhost",
		LockLease:         15 * time.Second,
		LockAttempts:      5,
		LockRetryDelay:    100 * time.Millisecond,
		BackgroundWorkers: 64,
	}

	if v := env("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ListenAddr = ":" + v
		}
	}
	if v := env("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.RedisURL = env("REDIS_URL")

	if v := env("OMAJINAI_BASE_URL"); v != "" {
		cfg.OracleBaseURL = v
	}
	if v := env("OMAJINAI_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OracleTimeout = time.Duration(n) * time.Millisecond
		}
	}

	if v := env("OSU_API_BASE_URL"); v != "" {
		cfg.CatalogBaseURL = v
	}
	cfg.OsuAPIKey = env("OSU_API_KEY")

	cfg.ScoreWebhookURL = env("DISCORD_SCORE_WEBHOOK")
	cfg.DebugWebhookURL = env("DISCORD_DEBUG_WEBHOOK")
	if v := env("DOMAIN"); v != "" {
		cfg.PublicDomain = v
	}

	if v := env("SUBMISSION_LOCK_TTL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LockLease = time.Duration(n) * time.Millisecond
		}
	}
	if v := env("SUBMISSION_LOCK_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LockAttempts = n
		}
	}
	if v := env("SUBMISSION_LOCK_RETRY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LockRetryDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := env("BACKGROUND_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BackgroundWorkers = n
		}
	}
	cfg.MessageDir = env("MSGCAT_DIR")

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }
