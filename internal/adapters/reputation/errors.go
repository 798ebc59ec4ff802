package reputation

import "errors"

var (
	// ErrSourceFailed wraps every lookup failure of a configured source.
	ErrSourceFailed = errors.New("reputation source failed")
	// ErrUnexpectedStatus is returned when a provider answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected provider status")
	// ErrInvalidSource is returned for an unusable source configuration.
	ErrInvalidSource = errors.New("invalid reputation source")
)
