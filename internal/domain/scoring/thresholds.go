package scoring

import (
	"fmt"

	"github.com/okian/fraudscope/internal/domain/model"
)

// Default risk thresholds.
const (
	DefaultLowThreshold  = 0.3
	DefaultHighThreshold = 0.7
)

// Thresholds split a probability into risk levels:
// p < Low is low, Low <= p < High is medium, p >= High is high.
type Thresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// DefaultThresholds returns 0.3 / 0.7.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultLowThreshold, High: DefaultHighThreshold}
}

// Validate requires 0 <= Low <= High <= 1.
func (t Thresholds) Validate() error {
	if t.Low < 0 || t.High > 1 || t.Low > t.High {
		return fmt.Errorf("%w: low=%v high=%v", ErrInvalidThresholds, t.Low, t.High)
	}
	return nil
}

// Level buckets p.
func (t Thresholds) Level(p float64) model.RiskLevel {
	switch {
	case p >= t.High:
		return model.RiskHigh
	case p >= t.Low:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}
