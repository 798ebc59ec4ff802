// Package classifier produces the internal fraud probability of a
// transaction from two statistical models.
//
// The linear model is a standardised logistic regression, the forest is an
// ensemble of decision stumps. Ensemble mode averages both. All models are
// read-only after construction, so one Classifier serves every worker.
package classifier

import (
	"fmt"
	"math"

	"github.com/okian/fraudscope/internal/domain/model"
)

// Predictor is the capability the scoring engine depends on.
type Predictor interface {
	Predict(v Vector, mode model.ClassifierMode) (model.InternalScore, error)
}

// Classifier holds both models and their shared scaler.
type Classifier struct {
	version string
	scaler  ScalerParams
	linear  *LinearModel
	forest  *StumpForest
}

var _ Predictor = (*Classifier)(nil)

// New builds a classifier from a validated bundle.
func New(b Bundle) (*Classifier, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &Classifier{version: b.Version, scaler: b.Scaler, linear: b.Linear, forest: b.Forest}, nil
}

// Load reads the bundle at path (embedded default when empty) and builds a classifier.
func Load(path string) (*Classifier, error) {
	b, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}
	return New(b)
}

// Version identifies the loaded bundle.
func (c *Classifier) Version() string { return c.version }

// Predict scores v with the requested mode. The label is probability > 0.5.
func (c *Classifier) Predict(v Vector, mode model.ClassifierMode) (model.InternalScore, error) {
	if c == nil || c.linear == nil || c.forest == nil {
		return model.InternalScore{}, ErrUnavailable
	}
	x := c.scaler.transform(v)

	var p float64
	switch mode {
	case model.ModeLinear:
		p = c.linear.Predict(x)
	case model.ModeForest:
		p = c.forest.Predict(x)
	case model.ModeEnsemble, "":
		mode = model.ModeEnsemble
		p = (c.linear.Predict(x) + c.forest.Predict(x)) / 2
	default:
		return model.InternalScore{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if math.IsNaN(p) {
		p = 0
	}
	p = math.Min(1, math.Max(0, p))
	return model.InternalScore{Probability: p, IsFraud: p > 0.5, Mode: mode}, nil
}

// ParseMode validates a configured mode name.
func ParseMode(s string) (model.ClassifierMode, error) {
	switch m := model.ClassifierMode(s); m {
	case model.ModeLinear, model.ModeForest, model.ModeEnsemble:
		return m, nil
	case "":
		return model.ModeEnsemble, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
