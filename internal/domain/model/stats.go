package model

import "time"

// ProcessorStatistics is a point-in-time snapshot of the pipeline counters.
type ProcessorStatistics struct {
	Running          bool          `json:"is_running"`
	Uptime           time.Duration `json:"-"`
	UptimeSeconds    float64       `json:"uptime_seconds"`
	Processed        int64         `json:"processed_count"`
	FraudDetected    int64         `json:"fraud_detected_count"`
	FraudRate        float64       `json:"fraud_rate"`
	Duplicates       int64         `json:"duplicate_count"`
	Malformed        int64         `json:"malformed_count"`
	Failed           int64         `json:"failed_count"`
	AlertsDispatched int64         `json:"alerts_dispatched"`
	Reconciled       int64         `json:"reconciled_count"`
	QueueDepth       int           `json:"queue_size"`
	AlertQueueDepth  int           `json:"alert_queue_size"`
	ScoringWorkers   int           `json:"scoring_workers"`
	AlertWorkers     int           `json:"alert_workers"`
}

// StoreStatistics summarises the persistent store.
type StoreStatistics struct {
	TotalTransactions    int64   `json:"total_transactions"`
	FraudTransactions    int64   `json:"fraud_transactions"`
	FraudRate            float64 `json:"fraud_rate"`
	HighRiskTransactions int64   `json:"high_risk_transactions"`
	AvgFraudProbability  float64 `json:"avg_fraud_probability"`
	OpenAlerts           int64   `json:"open_alerts"`
}

// FraudRate is fraud/max(total,1).
func FraudRate(fraud, total int64) float64 {
	if total < 1 {
		total = 1
	}
	return float64(fraud) / float64(total)
}
