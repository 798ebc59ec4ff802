package txgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Transactions int           // Number of transactions to generate
	Users        int           // Size of the synthetic user population
	FraudRatio   float64       // Share of transactions shaped like fraud
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	Wait         time.Duration // How long to wait for the pipeline to drain
	PollInterval time.Duration // How often /stats is polled while waiting
	OutputFile   string        // Optional JSON dump of the generated transactions
	Verbose      bool          // Enable verbose logging
}

// Transaction mirrors the POST /transactions body.
type Transaction struct {
	TransactionID string   `json:"transaction_id"`
	UserID        string   `json:"user_id"`
	Amount        float64  `json:"amount"`
	Merchant      string   `json:"merchant,omitempty"`
	Payment       *Payment `json:"payment,omitempty"`
}

// Payment mirrors the optional payment block.
type Payment struct {
	Processor      string             `json:"processor,omitempty"`
	Currency       string             `json:"currency,omitempty"`
	IPAddress      string             `json:"ip_address,omitempty"`
	Email          string             `json:"email,omitempty"`
	BillingCountry string             `json:"billing_country,omitempty"`
	CardCountry    string             `json:"card_country,omitempty"`
	Signals        map[string]float64 `json:"signals,omitempty"`
}

// SubmitResponse is the answer to a submission.
type SubmitResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Duplicate     bool   `json:"duplicate"`
}

// processorStats is the subset of GET /stats the verifier reads.
type processorStats struct {
	Processor struct {
		Running   bool  `json:"is_running"`
		Processed int64 `json:"processed_count"`
		Fraud     int64 `json:"fraud_detected_count"`
		Failed    int64 `json:"failed_count"`
		Queue     int   `json:"queue_size"`
	} `json:"processor"`
}

// Stats holds run statistics.
type Stats struct {
	Generated     int
	Submitted     int
	Accepted      int
	Duplicate     int
	Failed        int
	Processed     int64
	FraudDetected int64
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
