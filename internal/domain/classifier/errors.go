package classifier

import "errors"

// Sentinel kinds for classifier errors.
var (
	ErrUnavailable  = errors.New("classifier unavailable")
	ErrUnknownMode  = errors.New("unknown classifier mode")
	ErrInvalidModel = errors.New("invalid model bundle")
)
