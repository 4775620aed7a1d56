// Package blobstore provides durable bulk storage of ciphertext keyed by
// opaque identifier. The store never inspects, indexes, or validates the
// bytes it holds, and it enforces no expiry of its own: expiry timestamps
// are carried alongside each blob strictly as metadata for the sweeper.
package blobstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no blob exists under the identifier.
var ErrNotFound = errors.New("blobstore: blob not found")

// Meta is the informational record stored alongside each blob. ExpiresAt is
// never enforced at this layer.
type Meta struct {
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is the blob storage contract. Identifiers are generated by the
// caller with negligible collision probability; blobs are immutable once
// written. Delete is idempotent: deleting a missing identifier is not an
// error.
type Store interface {
	Put(ctx context.Context, identifier string, ciphertext []byte, meta Meta) error
	Get(ctx context.Context, identifier string) ([]byte, error)
	Delete(ctx context.Context, identifier string) error
	Close() error
}

// Scanner enumerates blob metadata for orphan reclamation. Both backends
// implement it; the sweeper depends on this rather than on a concrete store.
type Scanner interface {
	ScanMeta(ctx context.Context, fn func(identifier string, meta Meta) error) error
}
