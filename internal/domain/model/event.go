// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"time"
)

// TransactionEvent is a payment transaction awaiting assessment.
// It is immutable once enqueued.
type TransactionEvent struct {
	ID          string           `json:"transaction_id"`
	UserID      string           `json:"user_id"`
	Amount      float64          `json:"amount"`
	Merchant    string           `json:"merchant,omitempty"`
	Payment     *PaymentMetadata `json:"payment,omitempty"`
	ArrivalTime time.Time        `json:"arrival_time"`
}

// PaymentMetadata carries optional processor-side attributes.
type PaymentMetadata struct {
	Processor      string `json:"processor,omitempty"`
	Currency       string `json:"currency,omitempty"`
	IPAddress      string `json:"ip_address,omitempty"`
	Email          string `json:"email,omitempty"`
	BillingCountry string `json:"billing_country,omitempty"`
	CardCountry    string `json:"card_country,omitempty"`
	CardFunding    string `json:"card_funding,omitempty"`
	// Signals are caller-supplied classifier inputs keyed by feature name,
	// e.g. account_age_days or cross_border.
	Signals map[string]float64 `json:"signals,omitempty"`
}

// Validate reports ErrMalformedEvent when a required field is missing or invalid.
func (e TransactionEvent) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: missing transaction id", ErrMalformedEvent)
	case e.UserID == "":
		return fmt.Errorf("%w: missing user id", ErrMalformedEvent)
	case math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0):
		return fmt.Errorf("%w: amount is not finite", ErrMalformedEvent)
	case e.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrMalformedEvent)
	}
	return nil
}

// Signal returns the named caller-supplied signal, if any.
func (e TransactionEvent) Signal(name string) (float64, bool) {
	if e.Payment == nil || e.Payment.Signals == nil {
		return 0, false
	}
	v, ok := e.Payment.Signals[name]
	return v, ok
}

// IPAddress returns the payment IP address or "".
func (e TransactionEvent) IPAddress() string {
	if e.Payment == nil {
		return ""
	}
	return e.Payment.IPAddress
}

// Email returns the payer email or "".
func (e TransactionEvent) Email() string {
	if e.Payment == nil {
		return ""
	}
	return e.Payment.Email
}
