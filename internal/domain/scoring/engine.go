// Package scoring fuses the internal classifier probability with external
// reputation scores into the final assessment of a transaction.
package scoring

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/fraudscope/internal/domain/classifier"
	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/pkg/metrics"
)

// Fusion weights of the final probability.
const (
	InternalWeight = 0.6
	ExternalWeight = 0.4
)

// Fuse combines the internal probability and the external risk score.
func Fuse(internal, external float64) float64 {
	return clamp(InternalWeight*clamp(internal) + ExternalWeight*clamp(external))
}

// Engine produces assessments. Thresholds can be swapped while workers
// are scoring.
type Engine struct {
	predictor  classifier.Predictor
	aggregator *Aggregator
	mode       model.ClassifierMode
	thresholds atomic.Pointer[Thresholds]
	clock      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithMode selects the classifier mode, ensemble by default.
func WithMode(mode model.ClassifierMode) Option {
	return func(e *Engine) {
		if mode != "" {
			e.mode = mode
		}
	}
}

// WithAggregator sets the reputation sources.
func WithAggregator(a *Aggregator) Option {
	return func(e *Engine) { e.aggregator = a }
}

// WithThresholds sets the initial risk thresholds. Invalid values are ignored.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		if t.Validate() == nil {
			e.thresholds.Store(&t)
		}
	}
}

// WithClock overrides the assessment timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine creates an engine around predictor.
func NewEngine(predictor classifier.Predictor, opts ...Option) *Engine {
	e := &Engine{predictor: predictor, mode: model.ModeEnsemble, clock: time.Now}
	def := DefaultThresholds()
	e.thresholds.Store(&def)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the thresholds currently in force.
func (e *Engine) Thresholds() Thresholds { return *e.thresholds.Load() }

// SetThresholds replaces the thresholds for every later assessment.
func (e *Engine) SetThresholds(t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.thresholds.Store(&t)
	return nil
}

// Mode returns the classifier mode.
func (e *Engine) Mode() model.ClassifierMode { return e.mode }

// Assess scores tx. Only a classifier failure is an error; failing
// reputation sources merely contribute nothing.
func (e *Engine) Assess(ctx context.Context, tx model.EnrichedTransaction) (model.Assessment, error) { //nolint:gocritic // value semantics
	start := time.Now()
	internal, err := e.predictor.Predict(classifier.VectorFrom(tx), e.mode)
	metrics.RecordClassifierLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		return model.Assessment{}, fmt.Errorf("classify %s: %w", tx.Event.ID, err)
	}

	external, sources, tags := e.aggregator.Score(ctx, tx.Event)
	combined := Fuse(internal.Probability, external)

	return model.Assessment{
		TransactionID:       tx.Event.ID,
		CombinedProbability: combined,
		IsFraud:             combined > 0.5,
		RiskLevel:           e.Thresholds().Level(combined),
		Tags:                tags,
		InternalProbability: internal.Probability,
		ExternalRiskScore:   external,
		Mode:                internal.Mode,
		Sources:             sources,
		AssessedAt:          e.clock(),
	}, nil
}
