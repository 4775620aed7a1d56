package payment

import (
	"net/http"
	"strconv"
)

// Payment HTTP header names advertised on 402 responses.
const (
	HeaderPrice    = "X-Payment-Price"
	HeaderCurrency = "X-Payment-Currency"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "USD"

// Info is the advertised price attached to a 402 response body.
type Info struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// SetPaymentHeaders advertises the price on an HTTP response. The caller is
// responsible for writing the 402 status afterwards.
func SetPaymentHeaders(w http.ResponseWriter, info Info) {
	w.Header().Set(HeaderPrice, strconv.FormatFloat(info.Price, 'f', -1, 64))
	w.Header().Set(HeaderCurrency, info.Currency)
}
