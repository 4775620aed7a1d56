// Package config loads runtime configuration. Service wiring comes from the
// environment; tunable limits come from an optional YAML file validated
// against an embedded JSON schema.
package config

import (
	"os"
	"time"
)

const (
	defaultRedisURL      = "redis://localhost:6379"
	defaultHTTPAddr      = ":8080"
	defaultMetricsAddr   = ":9090"
	defaultBlobBackend   = "redis"
	defaultBoltPath      = "data/blobs.db"
	defaultSweepInterval = 10 * time.Minute

	envRedisURL      = "REDIS_URL"
	envBlobRedisURL  = "BLOB_REDIS_URL"
	envNATSURL       = "NATS_URL"
	envHTTPAddr      = "HTTP_ADDR"
	envMetricsAddr   = "METRICS_ADDR"
	envBlobBackend   = "BLOB_BACKEND"
	envBoltPath      = "BOLT_PATH"
	envLimitsPath    = "LIMITS_PATH"
	envPaymentSecret = "PAYMENT_SECRET"
	envSweepInterval = "SWEEP_INTERVAL"
)

// Config holds runtime configuration for the gateway and sweeper.
type Config struct {
	RedisURL      string
	BlobRedisURL  string
	NatsURL       string
	HTTPAddr      string
	MetricsAddr   string
	BlobBackend   string
	BoltPath      string
	LimitsPath    string
	PaymentSecret string
	SweepInterval time.Duration
}

// Load returns configuration using environment variables with sane defaults.
// NatsURL and PaymentSecret have no defaults: an empty NatsURL disables the
// event bus and an empty PaymentSecret disables the payment gate.
func Load() *Config {
	redisURL := os.Getenv(envRedisURL)
	if redisURL == "" {
		redisURL = defaultRedisURL
	}
	// Blob storage may live on a separate Redis from the expiry index.
	blobRedisURL := os.Getenv(envBlobRedisURL)
	if blobRedisURL == "" {
		blobRedisURL = redisURL
	}
	httpAddr := os.Getenv(envHTTPAddr)
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}
	metricsAddr := os.Getenv(envMetricsAddr)
	if metricsAddr == "" {
		metricsAddr = defaultMetricsAddr
	}
	backend := os.Getenv(envBlobBackend)
	if backend == "" {
		backend = defaultBlobBackend
	}
	boltPath := os.Getenv(envBoltPath)
	if boltPath == "" {
		boltPath = defaultBoltPath
	}
	sweepInterval := defaultSweepInterval
	if raw := os.Getenv(envSweepInterval); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			sweepInterval = d
		}
	}

	return &Config{
		RedisURL:      redisURL,
		BlobRedisURL:  blobRedisURL,
		NatsURL:       os.Getenv(envNATSURL),
		HTTPAddr:      httpAddr,
		MetricsAddr:   metricsAddr,
		BlobBackend:   backend,
		BoltPath:      boltPath,
		LimitsPath:    os.Getenv(envLimitsPath),
		PaymentSecret: os.Getenv(envPaymentSecret),
		SweepInterval: sweepInterval,
	}
}
