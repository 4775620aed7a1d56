// Package redisutil constructs Redis clients for the blob store and expiry
// index from redis:// URLs, with TLS and cluster settings taken from the
// environment.
package redisutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	envTLSCA         = "REDIS_TLS_CA"
	envTLSCert       = "REDIS_TLS_CERT"
	envTLSKey        = "REDIS_TLS_KEY"
	envTLSInsecure   = "REDIS_TLS_INSECURE"
	envTLSServerName = "REDIS_TLS_SERVER_NAME"
	envClusterAddrs  = "REDIS_CLUSTER_ADDRESSES"
)

// NewClient dials Redis at url. When REDIS_CLUSTER_ADDRESSES lists multiple
// addresses a cluster-aware client is returned; credentials and database
// selection still come from the URL.
func NewClient(url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisutil: parse url: %w", err)
	}
	tlsCfg, err := tlsFromEnv(opts.TLSConfig)
	if err != nil {
		return nil, err
	}

	addrs := splitAddrs(os.Getenv(envClusterAddrs))
	if len(addrs) == 0 {
		addrs = []string{opts.Addr}
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:     addrs,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: tlsCfg,
	}), nil
}

// tlsFromEnv layers REDIS_TLS_* settings over whatever the URL implied
// (rediss:// already sets a TLS config). Returns the base config unchanged
// when no TLS env vars are set.
func tlsFromEnv(base *tls.Config) (*tls.Config, error) {
	caPath := strings.TrimSpace(os.Getenv(envTLSCA))
	certPath := strings.TrimSpace(os.Getenv(envTLSCert))
	keyPath := strings.TrimSpace(os.Getenv(envTLSKey))
	serverName := strings.TrimSpace(os.Getenv(envTLSServerName))
	insecure := isTruthy(os.Getenv(envTLSInsecure))

	if caPath == "" && certPath == "" && keyPath == "" && serverName == "" && !insecure {
		return base, nil
	}

	cfg := &tls.Config{}
	if base != nil {
		cfg = base.Clone()
	}
	if serverName != "" {
		cfg.ServerName = serverName
	}
	if insecure {
		cfg.InsecureSkipVerify = true
	}

	if caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("redisutil: read tls ca: %w", err)
		}
		pool := cfg.RootCAs
		if pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("redisutil: parse tls ca %s", caPath)
		}
		cfg.RootCAs = pool
	}

	if certPath != "" || keyPath != "" {
		if certPath == "" || keyPath == "" {
			return nil, fmt.Errorf("redisutil: tls cert and key must be set together")
		}
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("redisutil: load tls keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

func isTruthy(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitAddrs(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if addr := strings.TrimSpace(p); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
