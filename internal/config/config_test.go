package config

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != "7654" {
		t.Errorf("Port = %s, want 7654", cfg.Server.Port)
	}
	if cfg.Bus.DefaultBufferSize != 1<<20 {
		t.Errorf("DefaultBufferSize = %d, want %d", cfg.Bus.DefaultBufferSize, 1<<20)
	}
	if cfg.Bus.MaxMessageSize != 256<<10 {
		t.Errorf("MaxMessageSize = %d, want %d", cfg.Bus.MaxMessageSize, 256<<10)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting should default to enabled")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BUS_BUFFER_SIZE", "4096")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bus.DefaultBufferSize != 4096 {
		t.Errorf("DefaultBufferSize = %d, want 4096", cfg.Bus.DefaultBufferSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug", cfg.Logging.Level)
	}
	// untouched fields keep their defaults
	if cfg.Bus.MaxPinnedPages != 16384 {
		t.Errorf("MaxPinnedPages = %d, want 16384", cfg.Bus.MaxPinnedPages)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("BUS_MAX_PINNED_PAGES", "not-a-number")
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed env value")
	}
	if cfg := LoadOrDefault(); cfg.Bus.MaxPinnedPages != 16384 {
		t.Errorf("LoadOrDefault fell back wrong: MaxPinnedPages = %d", cfg.Bus.MaxPinnedPages)
	}
}
