package model

import "time"

// RiskLevel is the coarse bucket derived from a fraud probability.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ClassifierMode selects which internal model produces the probability.
type ClassifierMode string

const (
	ModeLinear   ClassifierMode = "linear"
	ModeForest   ClassifierMode = "forest"
	ModeEnsemble ClassifierMode = "ensemble"
)

// InternalScore is the classifier output.
type InternalScore struct {
	Probability float64        `json:"probability"`
	IsFraud     bool           `json:"is_fraud"`
	Mode        ClassifierMode `json:"mode"`
}

// Reputation is what a reputation source says about a transaction.
type Reputation struct {
	RiskScore float64  `json:"risk_score"`
	Tags      []string `json:"tags,omitempty"`
}

// ExternalScore is one reputation source's weighted verdict.
// Err is set when the source failed; such a score contributes nothing.
type ExternalScore struct {
	Source    string   `json:"source"`
	RiskScore float64  `json:"risk_score"`
	Weight    float64  `json:"weight"`
	Tags      []string `json:"tags,omitempty"`
	Err       error    `json:"-"`
}

// Failed reports whether the source call failed.
func (s ExternalScore) Failed() bool { return s.Err != nil }

// Assessment is the final verdict for one transaction.
type Assessment struct {
	TransactionID       string          `json:"transaction_id"`
	CombinedProbability float64         `json:"combined_probability"`
	IsFraud             bool            `json:"is_fraud"`
	RiskLevel           RiskLevel       `json:"risk_level"`
	Tags                []string        `json:"tags"`
	InternalProbability float64         `json:"internal_probability"`
	ExternalRiskScore   float64         `json:"external_risk_score"`
	Mode                ClassifierMode  `json:"mode"`
	Sources             []ExternalScore `json:"sources,omitempty"`
	AssessedAt          time.Time       `json:"assessed_at"`
}

// TransactionRecord is the persisted form of an assessed transaction.
type TransactionRecord struct {
	TransactionID    string    `json:"transaction_id"`
	UserID           string    `json:"user_id"`
	Amount           float64   `json:"amount"`
	Merchant         string    `json:"merchant,omitempty"`
	IsFraud          bool      `json:"is_fraud"`
	FraudProbability float64   `json:"fraud_probability"`
	RiskLevel        RiskLevel `json:"risk_level"`
	ModelVersion     string    `json:"model_version"`
	Tags             []string  `json:"tags,omitempty"`
	Features         Features  `json:"features"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// NewTransactionRecord builds the persisted record of an assessment.
func NewTransactionRecord(tx EnrichedTransaction, a Assessment) TransactionRecord {
	return TransactionRecord{
		TransactionID:    tx.Event.ID,
		UserID:           tx.Event.UserID,
		Amount:           tx.Event.Amount,
		Merchant:         tx.Event.Merchant,
		IsFraud:          a.IsFraud,
		FraudProbability: a.CombinedProbability,
		RiskLevel:        a.RiskLevel,
		ModelVersion:     string(a.Mode),
		Tags:             a.Tags,
		Features:         tx.Features,
		ProcessedAt:      a.AssessedAt,
	}
}
