// Package client is the host-side library: it encrypts locally, uploads
// only ciphertext, and turns the server's identifier into a share URL whose
// fragment carries the key material. The server never sees that fragment.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/blindrop/blindrop/core/address"
	"github.com/blindrop/blindrop/core/crypto"
	"github.com/blindrop/blindrop/core/payment"
	"github.com/blindrop/blindrop/core/sniff"
)

// Sentinel errors mirroring the server's error codes.
var (
	ErrNotFound        = errors.New("client: drop not found")
	ErrGone            = errors.New("client: drop expired")
	ErrPaymentRequired = errors.New("client: payment required")
	ErrTooLarge        = errors.New("client: content too large")
)

// Client talks to a gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the gateway at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// DropResult describes a completed upload.
type DropResult struct {
	ShareURL   string
	Identifier string
	ExpiresAt  time.Time
}

// FetchResult carries decrypted content and its sniffed classification.
type FetchResult struct {
	Plaintext []byte
	Kind      sniff.Classification
}

type dropResponse struct {
	Identifier string `json:"identifier"`
	Expires    string `json:"expires"`
}

type errorResponse struct {
	Error   string        `json:"error"`
	Payment *payment.Info `json:"payment"`
}

// Drop encrypts plaintext with fresh key material, uploads the ciphertext
// and returns the share URL. ttlHours of zero selects the server default;
// a non-nil priceUSD arms the payment gate.
func (c *Client) Drop(ctx context.Context, plaintext []byte, ttlHours int, priceUSD *float64) (*DropResult, error) {
	key, iv, err := crypto.GenerateKeyMaterial()
	if err != nil {
		return nil, err
	}
	ciphertext, err := crypto.Encrypt(plaintext, key, iv)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if ttlHours > 0 {
		q.Set("ttl", strconv.Itoa(ttlHours))
	}
	if priceUSD != nil {
		q.Set("price", strconv.FormatFloat(*priceUSD, 'f', -1, 64))
	}
	endpoint := c.baseURL + "/api/drop"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(ciphertext))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var dr dropResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339, dr.Expires)
	if err != nil {
		return nil, fmt.Errorf("client: bad expiry %q: %w", dr.Expires, err)
	}

	shareURL, err := address.Build(c.baseURL, dr.Identifier, key, iv)
	if err != nil {
		return nil, err
	}
	return &DropResult{ShareURL: shareURL, Identifier: dr.Identifier, ExpiresAt: expiresAt}, nil
}

// Fetch downloads and decrypts the drop behind a share URL. The address is
// parsed locally; only the identifier leaves this process.
func (c *Client) Fetch(ctx context.Context, shareURL, paymentProof string) (*FetchResult, error) {
	addr, err := address.Parse(shareURL)
	if err != nil {
		return nil, err
	}

	endpoint := addr.Host + "/api/blob/" + addr.Identifier
	if paymentProof != "" {
		endpoint += "?paymentProof=" + url.QueryEscape(paymentProof)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	ciphertext, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	plaintext, err := crypto.Decrypt(ciphertext, addr.Key, addr.IV)
	if err != nil {
		return nil, err
	}
	return &FetchResult{Plaintext: plaintext, Kind: sniff.Classify(plaintext)}, nil
}

func decodeError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrGone
	case http.StatusPaymentRequired:
		if body.Payment != nil {
			return fmt.Errorf("%w: %s %s", ErrPaymentRequired,
				strconv.FormatFloat(body.Payment.Price, 'f', -1, 64), body.Payment.Currency)
		}
		return ErrPaymentRequired
	case http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	default:
		if body.Error != "" {
			return fmt.Errorf("client: server rejected request: %s", body.Error)
		}
		return fmt.Errorf("client: unexpected status %d", resp.StatusCode)
	}
}
