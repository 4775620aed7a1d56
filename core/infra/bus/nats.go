// Package bus publishes lifecycle events over NATS for downstream consumers
// such as audit pipelines. The bus is optional: a nil *NatsBus is a valid,
// silent publisher, so callers never need to branch on whether NATS is
// configured.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/blindrop/blindrop/core/infra/logging"
)

const (
	// SubjectDropCreated is published after a successful upload.
	SubjectDropCreated = "drop.created"
	// SubjectDropDownloaded is published after a successful download.
	SubjectDropDownloaded = "drop.downloaded"
	// SubjectDropReclaimed is published when the sweeper removes a blob.
	SubjectDropReclaimed = "drop.reclaimed"
)

// Event is the JSON payload published on every subject. Payloads never carry
// ciphertext or key material, only bookkeeping.
type Event struct {
	Identifier string    `json:"identifier"`
	SizeBytes  int       `json:"sizeBytes,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt,omitzero"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

// NatsBus publishes events on a NATS connection.
type NatsBus struct {
	nc *nats.Conn
}

// NewNatsBus dials NATS at the provided URL.
func NewNatsBus(url string) (*NatsBus, error) {
	opts := []nats.Option{
		nats.Name("blindrop-bus"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Error("bus", "disconnected from nats", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("bus", "reconnected to nats", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("bus: connect nats: %w", err)
	}
	return &NatsBus{nc: nc}, nil
}

// Close shuts down the underlying NATS connection.
func (b *NatsBus) Close() {
	if b != nil && b.nc != nil {
		b.nc.Close()
	}
}

// Publish sends an event on the given subject. Publishing is best effort:
// a failure is logged and swallowed so the request path never depends on
// NATS availability.
func (b *NatsBus) Publish(subject string, ev Event) {
	if b == nil || b.nc == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Error("bus", "marshal event", "subject", subject, "error", err)
		return
	}
	if err := b.nc.Publish(subject, payload); err != nil {
		logging.Error("bus", "publish event", "subject", subject, "error", err)
	}
}

// DropCreated publishes a drop.created event.
func (b *NatsBus) DropCreated(identifier string, sizeBytes int, expiresAt time.Time) {
	b.Publish(SubjectDropCreated, Event{Identifier: identifier, SizeBytes: sizeBytes, ExpiresAt: expiresAt})
}

// DropDownloaded publishes a drop.downloaded event.
func (b *NatsBus) DropDownloaded(identifier string) {
	b.Publish(SubjectDropDownloaded, Event{Identifier: identifier})
}

// DropReclaimed publishes a drop.reclaimed event.
func (b *NatsBus) DropReclaimed(identifier, reason string) {
	b.Publish(SubjectDropReclaimed, Event{Identifier: identifier, Reason: reason})
}
