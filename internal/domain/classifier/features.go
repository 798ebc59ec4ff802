package classifier

import (
	"github.com/okian/fraudscope/internal/domain/model"
)

// Feature names in model input order.
const (
	FeatureTransactionAmount        = "transaction_amount"
	FeatureAccountAgeDays           = "account_age_days"
	FeatureNumTransactionsToday     = "num_transactions_today"
	FeatureAvgTransactionAmount     = "avg_transaction_amount"
	FeatureTimeSinceLastTransaction = "time_since_last_transaction"
	FeatureMerchantRiskScore        = "merchant_risk_score"
	FeatureLocationRiskScore        = "location_risk_score"
	FeatureDeviceRiskScore          = "device_risk_score"
	FeatureVelocityScore            = "velocity_score"
	FeatureAmountDeviation          = "amount_deviation"
	FeatureHourOfDay                = "hour_of_day"
	FeatureDayOfWeek                = "day_of_week"
	FeatureIsWeekend                = "is_weekend"
	FeatureCrossBorder              = "cross_border"
	FeatureHighRiskMerchant         = "high_risk_merchant"
)

// NumFeatures is the classifier input width.
const NumFeatures = 15

// FeatureNames lists every input in vector order.
var FeatureNames = [NumFeatures]string{
	FeatureTransactionAmount,
	FeatureAccountAgeDays,
	FeatureNumTransactionsToday,
	FeatureAvgTransactionAmount,
	FeatureTimeSinceLastTransaction,
	FeatureMerchantRiskScore,
	FeatureLocationRiskScore,
	FeatureDeviceRiskScore,
	FeatureVelocityScore,
	FeatureAmountDeviation,
	FeatureHourOfDay,
	FeatureDayOfWeek,
	FeatureIsWeekend,
	FeatureCrossBorder,
	FeatureHighRiskMerchant,
}

var featureIndex = func() map[string]int {
	m := make(map[string]int, NumFeatures)
	for i, n := range FeatureNames {
		m[n] = i
	}
	return m
}()

// callerSignals are the inputs enrichment does not compute. Only these
// may come from PaymentMetadata.Signals.
var callerSignals = map[string]bool{
	FeatureAccountAgeDays:           true,
	FeatureTimeSinceLastTransaction: true,
	FeatureMerchantRiskScore:        true,
	FeatureLocationRiskScore:        true,
	FeatureDeviceRiskScore:          true,
	FeatureCrossBorder:              true,
	FeatureHighRiskMerchant:         true,
}

// Vector is one classifier input row.
type Vector [NumFeatures]float64

// Set assigns a named feature; unknown names are ignored.
func (v *Vector) Set(name string, value float64) bool {
	i, ok := featureIndex[name]
	if ok {
		v[i] = value
	}
	return ok
}

// Get returns a named feature.
func (v Vector) Get(name string) float64 {
	if i, ok := featureIndex[name]; ok {
		return v[i]
	}
	return 0
}

// DefaultVector holds the values used for inputs nobody supplied.
func DefaultVector() Vector {
	var v Vector
	v.Set(FeatureAccountAgeDays, 30)
	v.Set(FeatureNumTransactionsToday, 1)
	v.Set(FeatureTimeSinceLastTransaction, 60)
	v.Set(FeatureMerchantRiskScore, 0.1)
	v.Set(FeatureLocationRiskScore, 0.1)
	v.Set(FeatureDeviceRiskScore, 0.1)
	return v
}

// VectorFrom builds the input row for an enriched transaction. Caller
// signals fill the inputs enrichment cannot derive; derived features are
// set afterwards and always win. A merchant_risk_score signal replaces the
// merchant placeholder.
func VectorFrom(tx model.EnrichedTransaction) Vector {
	v := DefaultVector()
	f := tx.Features

	var merchantSignal bool
	if p := tx.Event.Payment; p != nil {
		for name, val := range p.Signals {
			if !callerSignals[name] {
				continue
			}
			v.Set(name, val)
			if name == FeatureMerchantRiskScore {
				merchantSignal = true
			}
		}
		if p.BillingCountry != "" && p.CardCountry != "" && p.BillingCountry != p.CardCountry {
			v.Set(FeatureCrossBorder, 1)
		}
	}

	v.Set(FeatureTransactionAmount, tx.Event.Amount)
	v.Set(FeatureNumTransactionsToday, float64(f.NumTransactionsToday))
	v.Set(FeatureAvgTransactionAmount, f.AvgTransactionAmount)
	v.Set(FeatureVelocityScore, f.VelocityScore)
	v.Set(FeatureAmountDeviation, f.AmountDeviation)
	v.Set(FeatureHourOfDay, float64(f.HourOfDay))
	v.Set(FeatureDayOfWeek, float64(f.DayOfWeek))
	v.Set(FeatureIsWeekend, 0)
	if f.IsWeekend {
		v.Set(FeatureIsWeekend, 1)
	}
	if tx.Event.Merchant != "" && !merchantSignal {
		v.Set(FeatureMerchantRiskScore, f.MerchantRiskScore)
	}
	return v
}
