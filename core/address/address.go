// Package address builds and parses blindrop share addresses.
//
// An address is a two-part URL: a network-visible part carrying the host and
// blob identifier, and a fragment carrying the decryption secret. The
// fragment never appears in a network request line, which is the entire
// security property of the system.
//
// Two fragment wire formats coexist. Format B (current) is a single
// 64-character unpadded base64url token decoding to key||iv. Format A
// (legacy) is query-style: k=<64 hex>&iv=<32 hex>. Build always emits
// Format B; Parse accepts both, forever.
package address

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/blindrop/blindrop/core/crypto"
)

const (
	// viewPrefix is the fixed path prefix in front of the identifier.
	viewPrefix = "/v/"

	// rawSecretLen is the decoded Format B secret length: key followed by iv.
	rawSecretLen = crypto.KeySize + crypto.IVSize

	// encodedSecretLen is rawSecretLen in unpadded base64url characters.
	encodedSecretLen = 64

	hexKeyLen = 2 * crypto.KeySize
	hexIVLen  = 2 * crypto.IVSize
)

// ShareAddress is the parsed form of a share URL. It exists only client-side
// and is never persisted by the service.
type ShareAddress struct {
	Host       string
	Identifier string
	Key        []byte
	IV         []byte
}

// Format identifies the wire encoding of an address fragment.
type Format int

const (
	FormatUnknown Format = iota
	FormatA              // legacy k=<hex>&iv=<hex> parameters
	FormatB              // single base64url key||iv token
)

// DetectFormat reports which wire format a fragment uses, without decoding
// it. Detection is explicit rather than try-all so failure modes stay
// attributable to one format.
func DetectFormat(secret string) Format {
	if secret == "" {
		return FormatUnknown
	}
	if len(secret) == encodedSecretLen && !strings.Contains(secret, "k=") {
		return FormatB
	}
	return FormatA
}

// Build serializes a share address, always emitting a Format B fragment.
func Build(host, identifier string, key, iv []byte) (string, error) {
	if len(key) != crypto.KeySize {
		return "", ErrShortKey
	}
	if len(iv) != crypto.IVSize {
		return "", ErrShortIV
	}
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrBadPath)
	}
	if !validIdentifier(identifier) {
		return "", fmt.Errorf("%w: bad identifier %q", ErrBadPath, identifier)
	}

	raw := make([]byte, 0, rawSecretLen)
	raw = append(raw, key...)
	raw = append(raw, iv...)
	secret := base64.RawURLEncoding.EncodeToString(raw)
	return host + viewPrefix + identifier + "#" + secret, nil
}

// Parse splits a share URL on the first '#' and decodes both parts.
func Parse(rawURL string) (*ShareAddress, error) {
	visible, secret, found := strings.Cut(rawURL, "#")
	if !found || secret == "" {
		return nil, ErrMissingFragment
	}

	u, err := url.Parse(visible)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPath, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: missing scheme or host", ErrBadPath)
	}
	identifier, ok := strings.CutPrefix(u.Path, viewPrefix)
	if !ok || !validIdentifier(identifier) {
		return nil, fmt.Errorf("%w: %q", ErrBadPath, u.Path)
	}

	key, iv, err := parseSecret(secret)
	if err != nil {
		return nil, err
	}

	return &ShareAddress{
		Host:       u.Scheme + "://" + u.Host,
		Identifier: identifier,
		Key:        key,
		IV:         iv,
	}, nil
}

// parseSecret decodes a fragment in either wire format. Format B is
// attempted only when the length and shape rule it in; anything else falls
// back to the legacy query-style parameters.
func parseSecret(secret string) (key, iv []byte, err error) {
	if DetectFormat(secret) == FormatB {
		if raw, derr := base64.RawURLEncoding.DecodeString(secret); derr == nil && len(raw) == rawSecretLen {
			return raw[:crypto.KeySize], raw[crypto.KeySize:], nil
		}
		// Not a valid Format B token after all; fall through to legacy.
	}

	values, qerr := url.ParseQuery(secret)
	if qerr != nil {
		return nil, nil, ErrShortKey
	}
	keyHex := values.Get("k")
	if len(keyHex) != hexKeyLen {
		return nil, nil, ErrShortKey
	}
	key, err = hex.DecodeString(keyHex)
	if err != nil {
		return nil, nil, ErrShortKey
	}
	ivHex := values.Get("iv")
	if len(ivHex) != hexIVLen {
		return nil, nil, ErrShortIV
	}
	iv, err = hex.DecodeString(ivHex)
	if err != nil {
		return nil, nil, ErrShortIV
	}
	return key, iv, nil
}

// ValidIdentifier reports whether id uses only the identifier character
// class: letters, digits and hyphens, as produced by UUID generation.
func ValidIdentifier(id string) bool {
	return validIdentifier(id)
}

func validIdentifier(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
