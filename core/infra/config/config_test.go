package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		envRedisURL, envBlobRedisURL, envNATSURL, envHTTPAddr, envMetricsAddr,
		envBlobBackend, envBoltPath, envLimitsPath, envPaymentSecret, envSweepInterval,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	if cfg.RedisURL != defaultRedisURL {
		t.Fatalf("unexpected redis url: %s", cfg.RedisURL)
	}
	if cfg.BlobRedisURL != defaultRedisURL {
		t.Fatalf("blob redis should fall back to redis url: %s", cfg.BlobRedisURL)
	}
	if cfg.HTTPAddr != defaultHTTPAddr || cfg.MetricsAddr != defaultMetricsAddr {
		t.Fatalf("unexpected listen addrs: %s %s", cfg.HTTPAddr, cfg.MetricsAddr)
	}
	if cfg.BlobBackend != "redis" {
		t.Fatalf("unexpected backend: %s", cfg.BlobBackend)
	}
	if cfg.NatsURL != "" || cfg.PaymentSecret != "" {
		t.Fatalf("nats and payment secret should default to disabled")
	}
	if cfg.SweepInterval != defaultSweepInterval {
		t.Fatalf("unexpected sweep interval: %v", cfg.SweepInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(envRedisURL, "redis://idx:6379")
	t.Setenv(envBlobRedisURL, "redis://blobs:6379")
	t.Setenv(envBlobBackend, "bolt")
	t.Setenv(envSweepInterval, "30s")
	t.Setenv(envPaymentSecret, "hush")

	cfg := Load()
	if cfg.RedisURL != "redis://idx:6379" || cfg.BlobRedisURL != "redis://blobs:6379" {
		t.Fatalf("unexpected redis urls: %s %s", cfg.RedisURL, cfg.BlobRedisURL)
	}
	if cfg.BlobBackend != "bolt" {
		t.Fatalf("unexpected backend: %s", cfg.BlobBackend)
	}
	if cfg.SweepInterval != 30*time.Second {
		t.Fatalf("unexpected sweep interval: %v", cfg.SweepInterval)
	}
	if cfg.PaymentSecret != "hush" {
		t.Fatalf("unexpected payment secret")
	}
}

func TestLoadIgnoresBadSweepInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv(envSweepInterval, "not-a-duration")
	if cfg := Load(); cfg.SweepInterval != defaultSweepInterval {
		t.Fatalf("expected fallback sweep interval, got %v", cfg.SweepInterval)
	}
}

func TestParseLimits(t *testing.T) {
	cfg, err := ParseLimits([]byte("max_blob_bytes: 1048576\ncurrency: EUR\nmax_ttl_hours: 72\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.MaxBlobBytes != 1<<20 || cfg.Currency != "EUR" || cfg.MaxTTLHours != 72 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
}

func TestParseLimitsRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative size":   "max_blob_bytes: -1\n",
		"bad currency":    "currency: EURO\n",
		"unknown field":   "max_blob_mb: 10\n",
		"inverted bounds": "min_ttl_hours: 48\nmax_ttl_hours: 24\n",
		"non-integer ttl": "max_ttl_hours: soon\n",
	}
	for name, payload := range cases {
		if _, err := ParseLimits([]byte(payload)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadLimitsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	if err := os.WriteFile(path, []byte("default_ttl_hours: 48\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadLimits(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultTTLHours != 48 {
		t.Fatalf("unexpected default ttl: %d", cfg.DefaultTTLHours)
	}

	if _, err := LoadLimits(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if cfg, err := LoadLimits(""); err != nil || cfg == nil {
		t.Fatalf("empty path should return empty config, got %v", err)
	}
}
