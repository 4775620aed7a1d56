package address

import "errors"

var (
	// ErrMissingFragment indicates the address has no secret part after '#'.
	ErrMissingFragment = errors.New("address: missing fragment")

	// ErrBadPath indicates the network-visible part does not contain a
	// /v/{identifier} path with a well-formed identifier.
	ErrBadPath = errors.New("address: unrecognized path")

	// ErrShortKey indicates the secret part carries a malformed or
	// undersized key.
	ErrShortKey = errors.New("address: malformed or undersized key")

	// ErrShortIV indicates the secret part carries a malformed or
	// undersized iv.
	ErrShortIV = errors.New("address: malformed or undersized iv")
)
