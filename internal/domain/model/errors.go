package model

import "errors"

// Sentinel kinds shared across layers.
var (
	ErrMalformedEvent = errors.New("malformed transaction event")
)
