// Package crypto implements the symmetric encryption primitive for blindrop
// content: AES-256 in CBC mode with PKCS#7 padding.
//
// Key material is generated by the writing client and travels only in the
// address fragment; the storage service never sees it. There is no
// authentication tag: a corrupted-but-length-valid ciphertext may decrypt to
// garbage without error, and only the original encrypting client can tell.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	// KeySize is the required AES-256 key length in bytes.
	KeySize = 32

	// IVSize is the required CBC initialization vector length in bytes.
	IVSize = 16

	// BlockSize is the AES block size in bytes. PKCS#7 always emits at
	// least one full padding block, so minimum ciphertext length equals
	// BlockSize even for empty plaintext.
	BlockSize = aes.BlockSize
)

// Encrypt encrypts plaintext with AES-256-CBC and PKCS#7 padding.
// Output is deterministic given (plaintext, key, iv). Callers must draw a
// fresh random iv per blob; reuse under the same key is not detected here.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != IVSize {
		return nil, ErrInvalidIVSize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher init: %w", err)
	}

	padded := pkcs7Pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// Decrypt reverses Encrypt. Any failure surfaces as ErrDecryptionFailed and
// never yields a partial result.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(iv) != IVSize {
		return nil, ErrInvalidIVSize
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher init: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
	return pkcs7Unpad(padded)
}

// GenerateKeyMaterial returns a fresh (key, iv) pair from a cryptographically
// secure random source. Intended for encrypting clients; the service itself
// never calls this.
func GenerateKeyMaterial() (key, iv []byte, err error) {
	key = make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	iv = make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("crypto: generate iv: %w", err)
	}
	return key, iv, nil
}

// pkcs7Pad rounds data up to a BlockSize multiple, appending N bytes each
// with value N. A full padding block is emitted when len(data) is already a
// multiple of BlockSize, including zero.
func pkcs7Pad(data []byte) []byte {
	pad := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > BlockSize {
		return nil, ErrDecryptionFailed
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, ErrDecryptionFailed
		}
	}
	return data[:len(data)-pad], nil
}
