package expiryindex

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func openIndex(t *testing.T) (*miniredis.Miniredis, *RedisIndex) {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(srv.Close)
	idx, err := NewRedisIndex("redis://" + srv.Addr())
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return srv, idx
}

func TestIndexPutGet(t *testing.T) {
	_, idx := openIndex(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	price := 4.99
	rec := Record{
		CreatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
		HasPayment: true,
		PriceUSD:   &price,
	}
	if err := idx.Put(ctx, "abc", rec, 24*time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := idx.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("expires mismatch: got %v want %v", got.ExpiresAt, rec.ExpiresAt)
	}
	if !got.HasPayment || got.PriceUSD == nil || *got.PriceUSD != price {
		t.Fatalf("payment fields lost: %+v", got)
	}
}

func TestIndexGetMissing(t *testing.T) {
	_, idx := openIndex(t)
	if _, err := idx.Get(context.Background(), "never"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIndexEntryCarriesTTL(t *testing.T) {
	srv, idx := openIndex(t)
	ctx := context.Background()

	now := time.Now().UTC()
	rec := Record{CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := idx.Put(ctx, "short", rec, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := srv.TTL("idx:short"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected ttl: %v", ttl)
	}

	srv.FastForward(2 * time.Hour)
	if _, err := idx.Get(ctx, "short"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected entry to vanish after ttl, got %v", err)
	}
}

func TestIndexRejectsNonPositiveTTL(t *testing.T) {
	_, idx := openIndex(t)
	if err := idx.Put(context.Background(), "x", Record{}, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestIndexDeleteIdempotent(t *testing.T) {
	_, idx := openIndex(t)
	ctx := context.Background()

	if err := idx.Put(ctx, "d", Record{ExpiresAt: time.Now().Add(time.Hour)}, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := idx.Delete(ctx, "d"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := idx.Delete(ctx, "d"); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	if _, err := idx.Get(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
