package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlertNotFound       = errors.New("open alert not found")
	ErrInvalidLimit        = errors.New("invalid limit")
	ErrUnsupportedDriver   = errors.New("unsupported store driver")
	ErrClosed              = errors.New("store closed")
)
