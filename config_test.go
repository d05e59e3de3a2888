package shellterm

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Columns != 160 {
		t.Errorf("expected 160 columns, got %d", cfg.Columns)
	}
	if cfg.MaxScreenLines != 10000 {
		t.Errorf("expected 10000 max screen lines, got %d", cfg.MaxScreenLines)
	}
	if cfg.MaxOutputBytes != 1000000 {
		t.Errorf("expected 1000000 max output bytes, got %d", cfg.MaxOutputBytes)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache TTL, got %s", cfg.CacheTTL)
	}
	if cfg.Restricted {
		t.Error("expected restricted mode off by default")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Columns != 160 {
		t.Errorf("expected 160 columns, got %d", cfg.Columns)
	}
	if cfg.DefaultTimeout != 30*time.Second {
		t.Errorf("expected 30s default timeout, got %s", cfg.DefaultTimeout)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SHELLTERM_COLUMNS", "80")
	t.Setenv("SHELLTERM_CACHE_TTL", "1m")
	t.Setenv("SHELLTERM_RESTRICTED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Columns != 80 {
		t.Errorf("expected 80 columns, got %d", cfg.Columns)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("expected 1m cache TTL, got %s", cfg.CacheTTL)
	}
	if !cfg.Restricted {
		t.Error("expected restricted mode on")
	}
}
