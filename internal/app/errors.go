package service

import "errors"

var (
	// ErrClassifierUnavailable aborts Start when no model can be loaded.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrNotRunning is returned by Submit outside Start/Stop.
	ErrNotRunning = errors.New("pipeline is not running")
	// ErrQueueClosed is returned when the ingestion queue refused an item.
	ErrQueueClosed = errors.New("ingestion queue closed")
	// ErrNoPaymentSource is returned by Reconcile when no payment source is configured.
	ErrNoPaymentSource = errors.New("no payment source configured")
)
