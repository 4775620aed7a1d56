package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return b
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintexts := [][]byte{
		nil,
		[]byte("X"),
		[]byte("hello world"),
		bytes.Repeat([]byte{0xAB}, 16),
		bytes.Repeat([]byte{0x00}, 1023),
	}
	for _, pt := range plaintexts {
		key, iv, err := GenerateKeyMaterial()
		if err != nil {
			t.Fatalf("generate key material: %v", err)
		}
		ct, err := Encrypt(pt, key, iv)
		if err != nil {
			t.Fatalf("encrypt %d bytes: %v", len(pt), err)
		}
		got, err := Decrypt(ct, key, iv)
		if err != nil {
			t.Fatalf("decrypt %d bytes: %v", len(pt), err)
		}
		if !bytes.Equal(got, pt) {
			t.Fatalf("round trip mismatch for %d-byte plaintext", len(pt))
		}
	}
}

// First ciphertext blocks must match the NIST SP 800-38A CBC-AES256 vectors;
// the trailing padding block is checked for length only.
func TestEncryptKnownVectors(t *testing.T) {
	key := mustHex(t, "603deb1015ca71be2b73aef0857d77811f352c073b6108d72d9810a30914dff4")

	cases := []struct {
		iv         string
		plaintext  string
		firstBlock string
	}{
		{
			iv:         "000102030405060708090a0b0c0d0e0f",
			plaintext:  "6bc1bee22e409f96e93d7e117393172a",
			firstBlock: "f58c4c04d6e5f1ba779eabfb5f7bfbd6",
		},
		{
			iv:         "f58c4c04d6e5f1ba779eabfb5f7bfbd6",
			plaintext:  "ae2d8a571e03ac9c9eb76fac45af8e51",
			firstBlock: "9cfc4e967edb808d679f777bc6702c7d",
		},
	}
	for _, tc := range cases {
		ct, err := Encrypt(mustHex(t, tc.plaintext), key, mustHex(t, tc.iv))
		if err != nil {
			t.Fatalf("encrypt vector: %v", err)
		}
		if len(ct) != 2*BlockSize {
			t.Fatalf("16-byte plaintext must yield 32 ciphertext bytes, got %d", len(ct))
		}
		if got := hex.EncodeToString(ct[:BlockSize]); got != tc.firstBlock {
			t.Fatalf("first block mismatch: got %s want %s", got, tc.firstBlock)
		}
	}
}

func TestEncryptEmptyPlaintextIsOneBlock(t *testing.T) {
	key := make([]byte, KeySize)
	iv := make([]byte, IVSize)
	ct, err := Encrypt(nil, key, iv)
	if err != nil {
		t.Fatalf("encrypt empty: %v", err)
	}
	if len(ct) != BlockSize {
		t.Fatalf("empty plaintext must yield exactly %d bytes, got %d", BlockSize, len(ct))
	}
}

func TestEncryptDeterministic(t *testing.T) {
	key, iv, err := GenerateKeyMaterial()
	if err != nil {
		t.Fatalf("generate key material: %v", err)
	}
	a, err := Encrypt([]byte("same input"), key, iv)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := Encrypt([]byte("same input"), key, iv)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("encryption must be deterministic for fixed (plaintext, key, iv)")
	}
}

func TestKeyAndIVSizeEnforced(t *testing.T) {
	if _, err := Encrypt([]byte("x"), make([]byte, 16), make([]byte, IVSize)); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
	if _, err := Encrypt([]byte("x"), make([]byte, KeySize), make([]byte, 12)); !errors.Is(err, ErrInvalidIVSize) {
		t.Fatalf("expected ErrInvalidIVSize, got %v", err)
	}
	if _, err := Decrypt(make([]byte, BlockSize), make([]byte, 31), make([]byte, IVSize)); !errors.Is(err, ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
}

func TestDecryptRejectsBadLengths(t *testing.T) {
	key := make([]byte, KeySize)
	iv := make([]byte, IVSize)
	for _, n := range []int{0, 1, 15, 17, 31} {
		if _, err := Decrypt(make([]byte, n), key, iv); !errors.Is(err, ErrDecryptionFailed) {
			t.Fatalf("length %d: expected ErrDecryptionFailed, got %v", n, err)
		}
	}
}

func TestDecryptRejectsBadPadding(t *testing.T) {
	key, iv, err := GenerateKeyMaterial()
	if err != nil {
		t.Fatalf("generate key material: %v", err)
	}
	ct, err := Encrypt([]byte("padded payload"), key, iv)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	// Wrong key decrypts the final block to an invalid pad with
	// overwhelming probability.
	wrongKey := make([]byte, KeySize)
	copy(wrongKey, key)
	wrongKey[0] ^= 0xFF
	if _, err := Decrypt(ct, wrongKey, iv); err == nil {
		// Roughly 1-in-256 chance the garbage ends in a valid pad; retry
		// with a second flipped byte before declaring failure.
		wrongKey[1] ^= 0xFF
		if _, err := Decrypt(ct, wrongKey, iv); err == nil {
			t.Fatalf("decrypt with wrong key should fail padding validation")
		}
	}
}
