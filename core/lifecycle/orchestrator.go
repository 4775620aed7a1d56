// Package lifecycle owns the server-side life of a blob: admission on
// upload, gating and retrieval on download, and reclamation after expiry.
// The server never sees plaintext or key material; everything here moves
// opaque ciphertext.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/blindrop/blindrop/core/infra/blobstore"
	"github.com/blindrop/blindrop/core/infra/expiryindex"
	"github.com/blindrop/blindrop/core/infra/logging"
	"github.com/blindrop/blindrop/core/infra/metrics"
	"github.com/blindrop/blindrop/core/payment"
)

const (
	// DefaultTTLHours applies when the uploader names no lifetime.
	DefaultTTLHours = 24
	// MinTTLHours and MaxTTLHours bound the accepted lifetime range.
	MinTTLHours = 1
	MaxTTLHours = 168

	// DefaultMaxBlobBytes caps upload size at 10 MiB.
	DefaultMaxBlobBytes = 10 << 20
)

// Events receives lifecycle notifications. A nil Events is valid.
type Events interface {
	DropCreated(identifier string, sizeBytes int, expiresAt time.Time)
	DropDownloaded(identifier string)
	DropReclaimed(identifier, reason string)
}

// Drop describes a freshly stored blob.
type Drop struct {
	Identifier string
	ExpiresAt  time.Time
}

// Limits bounds what an upload may ask for. Zero fields fall back to the
// package defaults.
type Limits struct {
	MaxBlobBytes    int
	MinTTLHours     int
	MaxTTLHours     int
	DefaultTTLHours int
	Currency        string
}

func (l Limits) withDefaults() Limits {
	if l.MaxBlobBytes <= 0 {
		l.MaxBlobBytes = DefaultMaxBlobBytes
	}
	if l.MinTTLHours <= 0 {
		l.MinTTLHours = MinTTLHours
	}
	if l.MaxTTLHours <= 0 {
		l.MaxTTLHours = MaxTTLHours
	}
	if l.DefaultTTLHours <= 0 {
		l.DefaultTTLHours = DefaultTTLHours
	}
	if l.Currency == "" {
		l.Currency = payment.DefaultCurrency
	}
	return l
}

// Orchestrator coordinates the blob store, the expiry index and the payment
// gate behind the two public operations, Upload and Download.
type Orchestrator struct {
	blobs   blobstore.Store
	index   expiryindex.Index
	gate    *payment.Gate
	events  Events
	metrics metrics.Metrics
	limits  Limits

	now func() time.Time
}

// NewOrchestrator wires the lifecycle pipeline. gate and events may be nil;
// a nil metrics falls back to a no-op implementation.
func NewOrchestrator(blobs blobstore.Store, index expiryindex.Index, gate *payment.Gate, events Events, m metrics.Metrics, limits Limits) *Orchestrator {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Orchestrator{
		blobs:   blobs,
		index:   index,
		gate:    gate,
		events:  events,
		metrics: m,
		limits:  limits.withDefaults(),
		now:     time.Now,
	}
}

// Upload admits a ciphertext blob. ttlHours of zero selects the default
// lifetime; values outside [MinTTLHours, MaxTTLHours] are rejected.
// priceUSD, when non-nil, arms the payment gate for this blob.
func (o *Orchestrator) Upload(ctx context.Context, ciphertext []byte, ttlHours int, priceUSD *float64) (Drop, error) {
	if len(ciphertext) == 0 {
		o.metrics.IncUpload("rejected")
		return Drop{}, ErrEmptyBody
	}
	if len(ciphertext) > o.limits.MaxBlobBytes {
		o.metrics.IncUpload("rejected")
		return Drop{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(ciphertext), o.limits.MaxBlobBytes)
	}
	if ttlHours == 0 {
		ttlHours = o.limits.DefaultTTLHours
	}
	if ttlHours < o.limits.MinTTLHours || ttlHours > o.limits.MaxTTLHours {
		o.metrics.IncUpload("rejected")
		return Drop{}, fmt.Errorf("%w: %d hours outside [%d, %d]", ErrInvalidTTL, ttlHours, o.limits.MinTTLHours, o.limits.MaxTTLHours)
	}
	if priceUSD != nil && (*priceUSD < 0 || math.IsNaN(*priceUSD) || math.IsInf(*priceUSD, 0)) {
		o.metrics.IncUpload("rejected")
		return Drop{}, ErrInvalidPrice
	}

	now := o.now().UTC()
	ttl := time.Duration(ttlHours) * time.Hour
	expiresAt := now.Add(ttl)
	identifier := uuid.NewString()

	meta := blobstore.Meta{CreatedAt: now, ExpiresAt: expiresAt}
	if err := o.blobs.Put(ctx, identifier, ciphertext, meta); err != nil {
		o.metrics.IncUpload("error")
		return Drop{}, err
	}

	rec := expiryindex.Record{
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		HasPayment: priceUSD != nil,
		PriceUSD:   priceUSD,
	}
	if err := o.index.Put(ctx, identifier, rec, ttl); err != nil {
		// The stored blob is now an orphan. The sweeper reclaims it once
		// its recorded expiry passes.
		o.metrics.IncUpload("error")
		logging.Error("lifecycle", "index write failed after blob write", "identifier", identifier, "error", err)
		return Drop{}, err
	}

	o.metrics.IncUpload("ok")
	if o.events != nil {
		o.events.DropCreated(identifier, len(ciphertext), expiresAt)
	}
	logging.Info("lifecycle", "blob stored", "identifier", identifier, "size", len(ciphertext), "ttl_hours", ttlHours, "paid", priceUSD != nil)
	return Drop{Identifier: identifier, ExpiresAt: expiresAt}, nil
}

// Download fetches a blob's ciphertext. The index is the authority on
// whether a blob is still addressable; the blob store is only consulted
// after the index and the payment gate both pass.
func (o *Orchestrator) Download(ctx context.Context, identifier, paymentProof string) ([]byte, error) {
	rec, err := o.index.Get(ctx, identifier)
	if errors.Is(err, expiryindex.ErrNotFound) {
		o.metrics.IncDownload("not_found")
		return nil, ErrNotFound
	}
	if err != nil {
		o.metrics.IncDownload("error")
		return nil, err
	}

	now := o.now().UTC()
	if !rec.ExpiresAt.After(now) {
		o.metrics.IncDownload("gone")
		return nil, ErrGone
	}

	if rec.HasPayment && !o.gate.Verify(identifier, paymentProof) {
		o.metrics.IncDownload("payment_required")
		price := 0.0
		if rec.PriceUSD != nil {
			price = *rec.PriceUSD
		}
		return nil, &PaymentRequiredError{Price: price, Currency: o.limits.Currency}
	}

	ciphertext, err := o.blobs.Get(ctx, identifier)
	if errors.Is(err, blobstore.ErrNotFound) {
		// Orphaned index entry: the blob vanished underneath it. Heal the
		// index opportunistically and report the blob as never-existed.
		if derr := o.index.Delete(ctx, identifier); derr != nil {
			logging.Error("lifecycle", "orphan index cleanup failed", "identifier", identifier, "error", derr)
		} else {
			o.metrics.IncOrphanReclaimed(metrics.OrphanIndex)
		}
		o.metrics.IncDownload("not_found")
		return nil, ErrNotFound
	}
	if err != nil {
		o.metrics.IncDownload("error")
		return nil, err
	}

	o.metrics.IncDownload("ok")
	if o.events != nil {
		o.events.DropDownloaded(identifier)
	}
	return ciphertext, nil
}

// PaymentInfo reports whether a blob is payment-gated and at what price,
// without fetching its content.
func (o *Orchestrator) PaymentInfo(ctx context.Context, identifier string) (payment.Info, bool, error) {
	rec, err := o.index.Get(ctx, identifier)
	if errors.Is(err, expiryindex.ErrNotFound) {
		return payment.Info{}, false, ErrNotFound
	}
	if err != nil {
		return payment.Info{}, false, err
	}
	if !rec.HasPayment {
		return payment.Info{}, false, nil
	}
	price := 0.0
	if rec.PriceUSD != nil {
		price = *rec.PriceUSD
	}
	return payment.Info{Price: price, Currency: o.limits.Currency}, true, nil
}
