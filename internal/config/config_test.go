package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseAndRedis(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
	t.Setenv("DATABASE_URL", "postgres://x@localhost/db")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without REDIS_URL")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", " postgres://x@localhost/db ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9100")
	t.Setenv("SUBMISSION_LOCK_TTL_MS", "2000")
	t.Setenv("SUBMISSION_LOCK_ATTEMPTS", "nope")
	t.Setenv("OSU_API_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://x@localhost/db" {
		t.Fatalf("database url not trimmed: %q", cfg.DatabaseURL)
	}
	if cfg.ListenAddr != ":9100" {
		t.Fatalf("listen=%q", cfg.ListenAddr)
	}
	if cfg.LockLease != 2*time.Second {
		t.Fatalf("lease=%v", cfg.LockLease)
	}
	if cfg.LockAttempts != 5 {
		t.Fatalf("invalid attempts should keep default, got %d", cfg.LockAttempts)
	}
	if cfg.OsuAPIKey != "k" || cfg.BackgroundWorkers != 64 {
		t.Fatalf("cfg=%+v", cfg)
	}
}
