// Package payment implements the proof-of-payment gate for priced blobs.
//
// The gate only verifies proofs; charging the buyer and issuing the proof is
// the job of an external payment processor, which calls Mint once payment
// clears. A proof is an HMAC-signed token scoped to one blob identifier and
// bounded in time, so a leaked proof cannot unlock other blobs and goes
// stale on its own.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultProofLifetime bounds how long a minted proof stays valid.
const DefaultProofLifetime = 15 * time.Minute

// Gate verifies payment proof tokens. The zero value (or a nil pointer)
// rejects every proof, keeping priced blobs gated when no secret is
// configured.
type Gate struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewGate constructs a gate from a signing secret. A non-positive lifetime
// falls back to DefaultProofLifetime.
func NewGate(secret []byte, lifetime time.Duration) *Gate {
	if lifetime <= 0 {
		lifetime = DefaultProofLifetime
	}
	return &Gate{secret: secret, lifetime: lifetime, now: time.Now}
}

// Mint issues a proof token for one identifier, valid for the gate's
// lifetime from now.
func (g *Gate) Mint(identifier string) (string, error) {
	if g == nil || len(g.secret) == 0 {
		return "", fmt.Errorf("payment: gate has no signing secret")
	}
	if identifier == "" {
		return "", fmt.Errorf("payment: empty identifier")
	}
	expiry := g.now().Add(g.lifetime).Unix()
	payload := proofPayload(identifier, expiry)
	mac := g.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(mac), nil
}

// Verify reports whether proof is a valid, unexpired token for identifier.
// It never explains a failure; the caller only branches on the verdict.
func (g *Gate) Verify(identifier, proof string) bool {
	if g == nil || len(g.secret) == 0 || identifier == "" || proof == "" {
		return false
	}

	payloadB64, macB64, found := strings.Cut(proof, ".")
	if !found {
		return false
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return false
	}
	mac, err := base64.RawURLEncoding.DecodeString(macB64)
	if err != nil {
		return false
	}

	payload := string(payloadBytes)
	gotID, expiryStr, found := cutLast(payload, '.')
	if !found || gotID != identifier {
		return false
	}
	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil || g.now().Unix() > expiry {
		return false
	}

	return hmac.Equal(mac, g.sign(payload))
}

func (g *Gate) sign(payload string) []byte {
	h := hmac.New(sha256.New, g.secret)
	h.Write([]byte(payload))
	return h.Sum(nil)
}

func proofPayload(identifier string, expiry int64) string {
	return identifier + "." + strconv.FormatInt(expiry, 10)
}

// cutLast splits s around the final occurrence of sep.
func cutLast(s string, sep byte) (before, after string, found bool) {
	i := strings.LastIndexByte(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}
