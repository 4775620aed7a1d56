package crypto

import "errors"

var (
	// ErrInvalidKeySize indicates the key is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.New("crypto: key must be 32 bytes")

	// ErrInvalidIVSize indicates the IV is not exactly IVSize bytes.
	ErrInvalidIVSize = errors.New("crypto: iv must be 16 bytes")

	// ErrDecryptionFailed indicates the ciphertext could not be decrypted.
	// The cause (bad length, bad padding, wrong key material) is deliberately
	// not distinguished; callers only learn that decryption failed.
	ErrDecryptionFailed = errors.New("crypto: decryption failed")
)
