// Package repository persists assessed transactions and operator alerts.
package repository

import (
	"context"

	"github.com/okian/fraudscope/internal/domain/model"
)

// Store is the persistent record of verdicts and alerts.
// Implementations are safe for concurrent use.
type Store interface {
	// InsertTransaction persists rec. A transaction id that already exists is
	// a no-op reported as inserted=false with a nil error.
	InsertTransaction(ctx context.Context, rec model.TransactionRecord) (inserted bool, err error)

	// CreateAlert persists an alert for an existing transaction and returns its id.
	// Returns ErrTransactionNotFound when the transaction is unknown.
	CreateAlert(ctx context.Context, alert model.AlertRecord) (int64, error)

	// GetRecent returns up to limit transactions, most recent first.
	GetRecent(ctx context.Context, limit int) ([]model.TransactionRecord, error)

	// GetStatistics summarises everything persisted so far.
	GetStatistics(ctx context.Context) (model.StoreStatistics, error)

	// GetOpenAlerts returns open alerts joined with their transactions, newest first.
	GetOpenAlerts(ctx context.Context) ([]model.OpenAlert, error)

	// ResolveAlert marks an open alert resolved.
	// Returns ErrAlertNotFound when no open alert has that id.
	ResolveAlert(ctx context.Context, id int64) error

	Close() error
}
