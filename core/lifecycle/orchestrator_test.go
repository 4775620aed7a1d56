package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blindrop/blindrop/core/infra/blobstore"
	"github.com/blindrop/blindrop/core/infra/expiryindex"
	"github.com/blindrop/blindrop/core/payment"
)

type fakeBlob struct {
	data []byte
	meta blobstore.Meta
}

type fakeStore struct {
	mu    sync.Mutex
	blobs map[string]fakeBlob
	fail  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: map[string]fakeBlob{}}
}

func (s *fakeStore) Put(_ context.Context, identifier string, ciphertext []byte, meta blobstore.Meta) error {
	if s.fail != nil {
		return s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[identifier] = fakeBlob{data: append([]byte(nil), ciphertext...), meta: meta}
	return nil
}

func (s *fakeStore) Get(_ context.Context, identifier string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[identifier]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return b.data, nil
}

func (s *fakeStore) Delete(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, identifier)
	return nil
}

func (s *fakeStore) ScanMeta(_ context.Context, fn func(string, blobstore.Meta) error) error {
	s.mu.Lock()
	snapshot := map[string]blobstore.Meta{}
	for id, b := range s.blobs {
		snapshot[id] = b.meta
	}
	s.mu.Unlock()
	for id, meta := range snapshot {
		if err := fn(id, meta); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) Close() error { return nil }

type fakeIndex struct {
	mu      sync.Mutex
	records map[string]expiryindex.Record
	fail    error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{records: map[string]expiryindex.Record{}}
}

func (i *fakeIndex) Put(_ context.Context, identifier string, rec expiryindex.Record, _ time.Duration) error {
	if i.fail != nil {
		return i.fail
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.records[identifier] = rec
	return nil
}

func (i *fakeIndex) Get(_ context.Context, identifier string) (expiryindex.Record, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	rec, ok := i.records[identifier]
	if !ok {
		return expiryindex.Record{}, expiryindex.ErrNotFound
	}
	return rec, nil
}

func (i *fakeIndex) Delete(_ context.Context, identifier string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.records, identifier)
	return nil
}

func (i *fakeIndex) Close() error { return nil }

func newTestOrchestrator(store *fakeStore, index *fakeIndex) *Orchestrator {
	return NewOrchestrator(store, index, nil, nil, nil, Limits{})
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	store, index := newFakeStore(), newFakeIndex()
	orch := newTestOrchestrator(store, index)
	ctx := context.Background()

	ciphertext := []byte("opaque bytes the server cannot read")
	drop, err := orch.Upload(ctx, ciphertext, 0, nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if drop.Identifier == "" {
		t.Fatalf("expected identifier")
	}
	wantExpiry := time.Now().Add(DefaultTTLHours * time.Hour)
	if diff := drop.ExpiresAt.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("unexpected default expiry: %v", drop.ExpiresAt)
	}

	got, err := orch.Download(ctx, drop.Identifier, "")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !bytes.Equal(got, ciphertext) {
		t.Fatalf("ciphertext mismatch")
	}
}

func TestUploadRejectsEmptyBody(t *testing.T) {
	orch := newTestOrchestrator(newFakeStore(), newFakeIndex())
	if _, err := orch.Upload(context.Background(), nil, 24, nil); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestUploadTTLBounds(t *testing.T) {
	orch := newTestOrchestrator(newFakeStore(), newFakeIndex())
	ctx := context.Background()
	for _, ttl := range []int{-1, 169, 1000} {
		if _, err := orch.Upload(ctx, []byte("x"), ttl, nil); !errors.Is(err, ErrInvalidTTL) {
			t.Fatalf("ttl %d: expected ErrInvalidTTL, got %v", ttl, err)
		}
	}
	for _, ttl := range []int{1, 168} {
		if _, err := orch.Upload(ctx, []byte("x"), ttl, nil); err != nil {
			t.Fatalf("ttl %d: unexpected error %v", ttl, err)
		}
	}
}

func TestUploadRejectsOversizedBlob(t *testing.T) {
	orch := NewOrchestrator(newFakeStore(), newFakeIndex(), nil, nil, nil, Limits{MaxBlobBytes: 8})
	if _, err := orch.Upload(context.Background(), []byte("nine bytes"), 24, nil); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestUploadRejectsNegativePrice(t *testing.T) {
	orch := newTestOrchestrator(newFakeStore(), newFakeIndex())
	price := -1.0
	if _, err := orch.Upload(context.Background(), []byte("x"), 24, &price); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestUploadIndexFailureSurfaces(t *testing.T) {
	store, index := newFakeStore(), newFakeIndex()
	index.fail = errors.New("redis down")
	orch := newTestOrchestrator(store, index)

	_, err := orch.Upload(context.Background(), []byte("x"), 24, nil)
	if err == nil {
		t.Fatalf("expected index failure to surface")
	}
	// The blob was written before the index failed; it stays behind as an
	// orphan for the sweeper.
	if len(store.blobs) != 1 {
		t.Fatalf("expected orphaned blob, have %d", len(store.blobs))
	}
}

func TestDownloadUnknownIdentifier(t *testing.T) {
	orch := newTestOrchestrator(newFakeStore(), newFakeIndex())
	if _, err := orch.Download(context.Background(), "nope", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDownloadExpiredRecord(t *testing.T) {
	store, index := newFakeStore(), newFakeIndex()
	orch := newTestOrchestrator(store, index)
	ctx := context.Background()

	drop, err := orch.Upload(ctx, []byte("x"), 1, nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	orch.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := orch.Download(ctx, drop.Identifier, ""); !errors.Is(err, ErrGone) {
		t.Fatalf("expected ErrGone, got %v", err)
	}
}

func TestDownloadPaymentGate(t *testing.T) {
	store, index := newFakeStore(), newFakeIndex()
	gate := payment.NewGate([]byte("test-secret"), 0)
	orch := NewOrchestrator(store, index, gate, nil, nil, Limits{})
	ctx := context.Background()

	price := 2.50
	drop, err := orch.Upload(ctx, []byte("paid content"), 24, &price)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	_, err = orch.Download(ctx, drop.Identifier, "")
	var payErr *PaymentRequiredError
	if !errors.As(err, &payErr) {
		t.Fatalf("expected PaymentRequiredError, got %v", err)
	}
	if payErr.Price != price || payErr.Currency != payment.DefaultCurrency {
		t.Fatalf("unexpected payment terms: %+v", payErr)
	}

	proof, err := gate.Mint(drop.Identifier)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := orch.Download(ctx, drop.Identifier, proof); err != nil {
		t.Fatalf("download with proof: %v", err)
	}
}

func TestDownloadOrphanedIndexSelfHeals(t *testing.T) {
	store, index := newFakeStore(), newFakeIndex()
	orch := newTestOrchestrator(store, index)
	ctx := context.Background()

	drop, err := orch.Upload(ctx, []byte("x"), 24, nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	// Blob vanishes underneath a live index entry.
	if err := store.Delete(ctx, drop.Identifier); err != nil {
		t.Fatalf("delete blob: %v", err)
	}
	if _, err := orch.Download(ctx, drop.Identifier, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := index.Get(ctx, drop.Identifier); !errors.Is(err, expiryindex.ErrNotFound) {
		t.Fatalf("expected index entry to have been cleaned up")
	}
}

func TestPaymentInfo(t *testing.T) {
	store, index := newFakeStore(), newFakeIndex()
	orch := newTestOrchestrator(store, index)
	ctx := context.Background()

	price := 9.99
	paid, err := orch.Upload(ctx, []byte("a"), 24, &price)
	if err != nil {
		t.Fatalf("upload paid: %v", err)
	}
	free, err := orch.Upload(ctx, []byte("b"), 24, nil)
	if err != nil {
		t.Fatalf("upload free: %v", err)
	}

	info, gated, err := orch.PaymentInfo(ctx, paid.Identifier)
	if err != nil || !gated || info.Price != price {
		t.Fatalf("unexpected paid info: %+v gated=%v err=%v", info, gated, err)
	}
	if _, gated, err := orch.PaymentInfo(ctx, free.Identifier); err != nil || gated {
		t.Fatalf("free blob reported as gated (err=%v)", err)
	}
	if _, _, err := orch.PaymentInfo(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
