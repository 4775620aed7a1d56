package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketBlobs = []byte("blobs")
	bucketMeta  = []byte("blobmeta")
)

// BoltStore implements Store backed by a single bbolt file. It suits
// single-node deployments where running Redis is not worth the trouble.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("blobstore: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBlobs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blobstore: create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put writes ciphertext and metadata in a single transaction.
func (s *BoltStore) Put(_ context.Context, identifier string, ciphertext []byte, meta Meta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("blobstore: marshal meta: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketBlobs).Put([]byte(identifier), ciphertext); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(identifier), payload)
	})
	if err != nil {
		return fmt.Errorf("blobstore: put %s: %w", identifier, err)
	}
	return nil
}

// Get returns the ciphertext for identifier, or ErrNotFound.
func (s *BoltStore) Get(_ context.Context, identifier string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(identifier))
		if v == nil {
			return ErrNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes a blob and its metadata. Missing keys are not an error.
func (s *BoltStore) Delete(_ context.Context, identifier string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketBlobs).Delete([]byte(identifier)); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete([]byte(identifier))
	})
	if err != nil {
		return fmt.Errorf("blobstore: delete %s: %w", identifier, err)
	}
	return nil
}

// ScanMeta walks all blob metadata entries. Entries that fail to decode are
// skipped rather than aborting the walk.
func (s *BoltStore) ScanMeta(ctx context.Context, fn func(identifier string, meta Meta) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var meta Meta
			if err := json.Unmarshal(v, &meta); err != nil {
				return nil
			}
			return fn(string(k), meta)
		})
	})
}
