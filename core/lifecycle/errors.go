package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyBody rejects uploads with no ciphertext.
	ErrEmptyBody = errors.New("lifecycle: empty body")
	// ErrInvalidTTL rejects lifetimes outside the allowed range.
	ErrInvalidTTL = errors.New("lifecycle: invalid ttl")
	// ErrInvalidPrice rejects negative or unparseable prices.
	ErrInvalidPrice = errors.New("lifecycle: invalid price")
	// ErrTooLarge rejects uploads exceeding the size cap.
	ErrTooLarge = errors.New("lifecycle: blob too large")
	// ErrNotFound covers both blobs that never existed and blobs already
	// reclaimed. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("lifecycle: blob not found")
	// ErrGone marks a blob whose recorded expiry has passed but whose
	// reclamation has not happened yet.
	ErrGone = errors.New("lifecycle: blob expired")
)

// PaymentRequiredError signals that a valid payment proof must accompany the
// download request.
type PaymentRequiredError struct {
	Price    float64
	Currency string
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("lifecycle: payment required: %.2f %s", e.Price, e.Currency)
}
