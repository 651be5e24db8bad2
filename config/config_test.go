package config

import (
	"errors"
	"testing"

	"github.com/mxm-platform/dataio/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATAIO_DB_PATH", "")
	t.Setenv("DATAIO_CACHE_MODE", "")
	t.Setenv("DATAIO_TTL_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "dataio.sqlite" {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if cfg.DefaultCacheMode != domain.CacheModeDefault {
		t.Fatalf("unexpected cache mode: %s", cfg.DefaultCacheMode)
	}
	if cfg.DefaultTTLSeconds != nil {
		t.Fatalf("expected no default TTL, got %d", *cfg.DefaultTTLSeconds)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("unexpected port: %d", cfg.HTTPPort)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATAIO_DB_PATH", "/tmp/audit.db")
	t.Setenv("DATAIO_CACHE_MODE", "only_if_cached")
	t.Setenv("DATAIO_TTL_SECONDS", "900")
	t.Setenv("DATAIO_HTTP_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/tmp/audit.db" {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
	if cfg.DefaultCacheMode != domain.CacheModeOnlyIfCached {
		t.Fatalf("unexpected cache mode: %s", cfg.DefaultCacheMode)
	}
	if cfg.DefaultTTLSeconds == nil || *cfg.DefaultTTLSeconds != 900 {
		t.Fatalf("unexpected TTL: %v", cfg.DefaultTTLSeconds)
	}
	if cfg.HTTPPort != 9090 {
		t.Fatalf("unexpected port: %d", cfg.HTTPPort)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	t.Setenv("DATAIO_CACHE_MODE", "aggressive")

	_, err := Load()
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cerr.Field != "DATAIO_CACHE_MODE" {
		t.Fatalf("unexpected field: %s", cerr.Field)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("DATAIO_TTL_SECONDS", "-5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative TTL")
	}

	t.Setenv("DATAIO_TTL_SECONDS", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric TTL")
	}
}

func TestValidate(t *testing.T) {
	ttl := int64(60)
	valid := &Config{
		DBPath:            ":memory:",
		ResponsesRoot:     "responses",
		DefaultCacheMode:  domain.CacheModeDefault,
		DefaultTTLSeconds: &ttl,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	cases := map[string]*Config{
		"missing db path": {
			ResponsesRoot:    "responses",
			DefaultCacheMode: domain.CacheModeDefault,
		},
		"missing responses root": {
			DBPath:           ":memory:",
			DefaultCacheMode: domain.CacheModeDefault,
		},
		"bad mode": {
			DBPath:           ":memory:",
			ResponsesRoot:    "responses",
			DefaultCacheMode: "turbo",
		},
	}
	for name, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
