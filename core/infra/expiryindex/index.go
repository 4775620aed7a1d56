// Package expiryindex tracks which blobs are still addressable. Each entry
// carries a native Redis TTL, so expiry enforcement costs nothing at read
// time: an expired entry simply stops existing.
package expiryindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blindrop/blindrop/core/infra/redisutil"
)

// ErrNotFound is returned when no live index entry exists for an identifier.
// Expired entries and entries that never existed are indistinguishable.
var ErrNotFound = errors.New("expiryindex: entry not found")

const (
	defaultRedisURL = "redis://localhost:6379"
	opTimeout       = 2 * time.Second

	indexKeyPrefix = "idx:"
)

// Record is the per-blob bookkeeping stored in the index.
type Record struct {
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	HasPayment bool      `json:"hasPayment,omitempty"`
	PriceUSD   *float64  `json:"priceUsd,omitempty"`
}

// Index is the lookup surface consulted on every download.
type Index interface {
	Put(ctx context.Context, identifier string, rec Record, ttl time.Duration) error
	Get(ctx context.Context, identifier string) (Record, error)
	Delete(ctx context.Context, identifier string) error
	Close() error
}

// RedisIndex implements Index on Redis with per-key TTLs.
type RedisIndex struct {
	client redis.UniversalClient
}

// NewRedisIndex dials Redis and verifies connectivity.
func NewRedisIndex(url string) (*RedisIndex, error) {
	if url == "" {
		url = defaultRedisURL
	}
	client, err := redisutil.NewClient(url)
	if err != nil {
		return nil, fmt.Errorf("expiryindex: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("expiryindex: connect redis: %w", err)
	}
	return &RedisIndex{client: client}, nil
}

// Close closes the underlying Redis client.
func (i *RedisIndex) Close() error {
	if i == nil || i.client == nil {
		return nil
	}
	return i.client.Close()
}

// Put stores the record with the given TTL. Redis deletes the key when the
// TTL elapses, which is what makes a blob unreachable.
func (i *RedisIndex) Put(ctx context.Context, identifier string, rec Record, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("expiryindex: non-positive ttl %v", ttl)
	}
	cctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("expiryindex: marshal record: %w", err)
	}
	if err := i.client.Set(cctx, indexKey(identifier), payload, ttl).Err(); err != nil {
		return fmt.Errorf("expiryindex: put %s: %w", identifier, err)
	}
	return nil
}

// Get returns the record for identifier, or ErrNotFound.
func (i *RedisIndex) Get(ctx context.Context, identifier string) (Record, error) {
	cctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := i.client.Get(cctx, indexKey(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("expiryindex: get %s: %w", identifier, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("expiryindex: decode %s: %w", identifier, err)
	}
	return rec, nil
}

// Delete removes the entry. Missing keys are not an error.
func (i *RedisIndex) Delete(ctx context.Context, identifier string) error {
	cctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := i.client.Del(cctx, indexKey(identifier)).Err(); err != nil {
		return fmt.Errorf("expiryindex: delete %s: %w", identifier, err)
	}
	return nil
}

func indexKey(identifier string) string {
	return indexKeyPrefix + identifier
}
