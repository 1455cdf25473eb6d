package config

import (
	"os"
	"testing"
)

func TestBuilderDefaults(t *testing.T) {
	cfg, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BookDepth != defaultBookDepth {
		t.Fatalf("expected default book depth %d, got %d", defaultBookDepth, cfg.BookDepth)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Output != "stdout" {
		t.Fatalf("expected default logging config, got %+v", cfg.Logging)
	}
}

func TestBuilderClampsBookDepth(t *testing.T) {
	cfg, err := NewBuilder().WithBookDepth(1).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BookDepth != minBookDepth {
		t.Fatalf("expected clamp to %d, got %d", minBookDepth, cfg.BookDepth)
	}

	cfg, err = NewBuilder().WithBookDepth(5000).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BookDepth != maxBookDepth {
		t.Fatalf("expected clamp to %d, got %d", maxBookDepth, cfg.BookDepth)
	}
}

func TestBuilderRejectsInvalidOHLCInterval(t *testing.T) {
	_, err := NewBuilder().WithOHLCPairs(7, "XBT/USD").Build()
	if err == nil {
		t.Fatal("expected error for invalid ohlc interval")
	}
}

func TestBuilderAcceptsValidOHLCInterval(t *testing.T) {
	cfg, err := NewBuilder().WithOHLCPairs(15, "XBT/USD").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OHLCInterval != 15 {
		t.Fatalf("expected interval 15, got %d", cfg.OHLCInterval)
	}
}

func TestBuilderRequiresAuthTokenForPrivateChannels(t *testing.T) {
	_, err := NewBuilder().WithOpenOrders().Build()
	if err != ErrMissingAuthToken {
		t.Fatalf("expected ErrMissingAuthToken, got %v", err)
	}

	_, err = NewBuilder().WithOwnTrades().WithAuthToken("tok").Build()
	if err != nil {
		t.Fatalf("unexpected error with token supplied: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("KRAKENWS_LOG_LEVEL", "debug")
	t.Setenv("KRAKENWS_REDIS_ENABLED", "true")
	t.Setenv("KRAKENWS_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("KRAKENWS_PG_ENABLED", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Address != "redis.internal:6379" {
		t.Fatalf("expected redis overrides applied, got %+v", cfg.Redis)
	}
	if !cfg.Postgres.Enabled {
		t.Fatal("expected postgres enabled via '1' value")
	}
}

func TestLoadIgnoresMissingFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(wd)

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	if _, err := Load(); err != nil {
		t.Fatalf("expected no error with missing config file, got %v", err)
	}
}

func TestGetEnvBoolOrDefaultFallsBackWhenUnset(t *testing.T) {
	os.Unsetenv("KRAKENWS_TEST_UNSET_BOOL")
	if !getEnvBoolOrDefault("KRAKENWS_TEST_UNSET_BOOL", true) {
		t.Fatal("expected fallback default true")
	}
}
