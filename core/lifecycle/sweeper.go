package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/blindrop/blindrop/core/infra/blobstore"
	"github.com/blindrop/blindrop/core/infra/expiryindex"
	"github.com/blindrop/blindrop/core/infra/logging"
	"github.com/blindrop/blindrop/core/infra/metrics"
)

// DefaultSweepInterval is how often the sweeper scans for reclaimable blobs.
const DefaultSweepInterval = 10 * time.Minute

// SweepStore is the storage surface the sweeper needs: blob access plus the
// ability to walk stored metadata.
type SweepStore interface {
	blobstore.Store
	blobstore.Scanner
}

// Sweeper reclaims ciphertext whose expiry has passed. The expiry index
// makes blobs unreachable on its own (Redis TTL); the sweeper's job is to
// release the storage behind them, including blobs orphaned by a failed
// upload that never reached the index.
type Sweeper struct {
	blobs   SweepStore
	index   expiryindex.Index
	events  Events
	metrics metrics.Metrics

	now func() time.Time
}

// NewSweeper wires a sweeper. events may be nil; a nil metrics falls back
// to a no-op implementation.
func NewSweeper(blobs SweepStore, index expiryindex.Index, events Events, m metrics.Metrics) *Sweeper {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Sweeper{blobs: blobs, index: index, events: events, metrics: m, now: time.Now}
}

// SweepOnce walks all stored blob metadata and deletes every blob whose
// recorded expiry has passed and whose index entry is gone. A blob with a
// live index entry is left alone even when its metadata says expired; the
// index entry's own TTL will clear it first.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()
	reclaimed := 0
	err := s.blobs.ScanMeta(ctx, func(identifier string, meta blobstore.Meta) error {
		if meta.ExpiresAt.After(now) {
			return nil
		}
		_, err := s.index.Get(ctx, identifier)
		if err == nil {
			return nil
		}
		if !errors.Is(err, expiryindex.ErrNotFound) {
			return err
		}
		if err := s.blobs.Delete(ctx, identifier); err != nil {
			logging.Error("sweeper", "reclaim failed", "identifier", identifier, "error", err)
			return nil
		}
		reclaimed++
		s.metrics.IncOrphanReclaimed(metrics.OrphanBlob)
		if s.events != nil {
			s.events.DropReclaimed(identifier, "expired")
		}
		return nil
	})
	if err != nil {
		return reclaimed, err
	}
	if reclaimed > 0 {
		logging.Info("sweeper", "sweep complete", "reclaimed", reclaimed)
	}
	return reclaimed, nil
}

// Run sweeps at the given interval until ctx is cancelled. A non-positive
// interval selects DefaultSweepInterval.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("sweeper", "sweep aborted", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
