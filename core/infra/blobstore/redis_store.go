package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blindrop/blindrop/core/infra/redisutil"
)

const (
	defaultRedisURL = "redis://localhost:6379"
	opTimeout       = 2 * time.Second

	blobKeyPrefix = "blob:"
	metaKeyPrefix = "blob:meta:"
)

// RedisStore implements Store backed by Redis. Blob keys carry no Redis
// TTL; reclamation is the sweeper's job, driven by the stored metadata.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore dials Redis and verifies connectivity.
func NewRedisStore(url string) (*RedisStore, error) {
	if url == "" {
		url = defaultRedisURL
	}
	client, err := redisutil.NewClient(url)
	if err != nil {
		return nil, fmt.Errorf("blobstore: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("blobstore: connect redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Put writes ciphertext and its metadata in one transactional pipeline so a
// blob never exists without its sweeper metadata.
func (s *RedisStore) Put(ctx context.Context, identifier string, ciphertext []byte, meta Meta) error {
	cctx, cancel := opContext(ctx)
	defer cancel()

	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("blobstore: marshal meta: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(cctx, BlobKey(identifier), ciphertext, 0)
	pipe.Set(cctx, metaKey(identifier), payload, 0)
	if _, err := pipe.Exec(cctx); err != nil {
		return fmt.Errorf("blobstore: put %s: %w", identifier, err)
	}
	return nil
}

// Get returns the ciphertext for identifier, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, identifier string) ([]byte, error) {
	cctx, cancel := opContext(ctx)
	defer cancel()

	data, err := s.client.Get(cctx, BlobKey(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: get %s: %w", identifier, err)
	}
	return data, nil
}

// Delete removes a blob and its metadata. Missing keys are not an error.
func (s *RedisStore) Delete(ctx context.Context, identifier string) error {
	cctx, cancel := opContext(ctx)
	defer cancel()

	if err := s.client.Del(cctx, BlobKey(identifier), metaKey(identifier)).Err(); err != nil {
		return fmt.Errorf("blobstore: delete %s: %w", identifier, err)
	}
	return nil
}

// ScanMeta walks all blob metadata entries. Entries whose metadata fails to
// decode are skipped rather than aborting the walk.
func (s *RedisStore) ScanMeta(ctx context.Context, fn func(identifier string, meta Meta) error) error {
	iter := s.client.Scan(ctx, 0, metaKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		identifier := strings.TrimPrefix(key, metaKeyPrefix)
		if identifier == "" {
			continue
		}
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("blobstore: scan get %s: %w", key, err)
		}
		var meta Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			continue
		}
		if err := fn(identifier, meta); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("blobstore: scan: %w", err)
	}
	return nil
}

func opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, opTimeout)
}

// BlobKey constructs the Redis key holding a blob's ciphertext.
func BlobKey(identifier string) string {
	return blobKeyPrefix + identifier
}

func metaKey(identifier string) string {
	return metaKeyPrefix + identifier
}
