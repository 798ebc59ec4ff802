package model

// Features are the derived attributes computed by the enrichment engine.
type Features struct {
	HourOfDay int  `json:"hour_of_day"`
	DayOfWeek int  `json:"day_of_week"` // Monday=0
	IsWeekend bool `json:"is_weekend"`

	UserTransactionCount int     `json:"user_transaction_count"`
	UserAvgAmount        float64 `json:"user_avg_amount"`
	UserFraudRate        float64 `json:"user_fraud_rate"`

	TransactionsLast24h  int     `json:"transactions_last_24h"`
	NumTransactionsToday int     `json:"num_transactions_today"`
	AvgTransactionAmount float64 `json:"avg_transaction_amount"`
	AmountDeviation      float64 `json:"amount_deviation"`
	VelocityScore        float64 `json:"velocity_score"`

	MerchantRiskScore float64 `json:"merchant_risk_score"`
	MerchantFraudRate float64 `json:"merchant_fraud_rate"`
}

// EnrichedTransaction pairs an event with its derived features.
type EnrichedTransaction struct {
	Event    TransactionEvent `json:"event"`
	Features Features         `json:"features"`
}
