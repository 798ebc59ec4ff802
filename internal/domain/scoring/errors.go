package scoring

import "errors"

var (
	// ErrInvalidThresholds is returned for thresholds outside 0 <= low <= high <= 1.
	ErrInvalidThresholds = errors.New("invalid risk thresholds")
	// ErrInvalidWeight is returned for a negative reputation weight.
	ErrInvalidWeight = errors.New("invalid reputation weight")
)
