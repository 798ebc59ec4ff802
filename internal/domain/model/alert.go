package model

import (
	"fmt"
	"time"
)

// Alert constants written to every real-time alert.
const (
	AlertTypeHighRisk = "Real-time High Risk Transaction"
	SeverityCritical  = "Critical"
)

// AlertStatus is the lifecycle state of an alert record.
type AlertStatus string

const (
	AlertOpen     AlertStatus = "open"
	AlertResolved AlertStatus = "resolved"
)

// AlertPayload is queued for the alert dispatch pool and handed to sinks.
type AlertPayload struct {
	TransactionID       string    `json:"transaction_id"`
	UserID              string    `json:"user_id"`
	Amount              float64   `json:"amount"`
	CombinedProbability float64   `json:"combined_probability"`
	Tags                []string  `json:"tags"`
	Timestamp           time.Time `json:"timestamp"`
}

// Message renders the operator-facing alert text.
func (p AlertPayload) Message() string {
	return fmt.Sprintf("Transaction %s flagged as high risk (probability: %.2f%%)",
		p.TransactionID, p.CombinedProbability*100)
}

// AlertRecord is a persisted operator alert.
type AlertRecord struct {
	ID            int64       `json:"id"`
	TransactionID string      `json:"transaction_id"`
	Type          string      `json:"alert_type"`
	Severity      string      `json:"severity"`
	Message       string      `json:"message"`
	Status        AlertStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	ResolvedAt    *time.Time  `json:"resolved_at,omitempty"`
}

// NewHighRiskAlert builds the open alert record for payload.
func NewHighRiskAlert(p AlertPayload, now time.Time) AlertRecord {
	return AlertRecord{
		TransactionID: p.TransactionID,
		Type:          AlertTypeHighRisk,
		Severity:      SeverityCritical,
		Message:       p.Message(),
		Status:        AlertOpen,
		CreatedAt:     now,
	}
}

// OpenAlert is an open alert joined with its transaction.
type OpenAlert struct {
	AlertRecord
	UserID           string  `json:"user_id"`
	Amount           float64 `json:"amount"`
	FraudProbability float64 `json:"fraud_probability"`
}
