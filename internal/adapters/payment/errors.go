package payment

import "errors"

var (
	// ErrSourceFailed wraps every listing failure of a payment source.
	ErrSourceFailed = errors.New("payment source failed")
	// ErrInvalidSignature is returned for webhook deliveries that fail verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrInvalidPayload is returned for verified deliveries whose object cannot be decoded.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)
