package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/pkg/logger"
	"github.com/okian/fraudscope/pkg/metrics"
)

const defaultSourceTimeout = 5 * time.Second

// Source is a reputation provider. Implementations must be safe for
// concurrent use.
type Source interface {
	Name() string
	Score(ctx context.Context, ev model.TransactionEvent) (model.Reputation, error)
}

// WeightedSource is a configured Source with its fusion weight.
type WeightedSource struct {
	Source  Source
	Weight  float64
	Timeout time.Duration
}

// Aggregator queries every configured source in parallel and folds the
// answers into one external risk score.
type Aggregator struct {
	sources []WeightedSource
	logger  logger.Logger
}

// NewAggregator validates the weights and builds an aggregator. A nil
// logger falls back to the global one.
func NewAggregator(lg logger.Logger, sources ...WeightedSource) (*Aggregator, error) {
	for i := range sources {
		if sources[i].Weight < 0 || math.IsNaN(sources[i].Weight) {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidWeight, sources[i].Source.Name(), sources[i].Weight)
		}
		if sources[i].Timeout <= 0 {
			sources[i].Timeout = defaultSourceTimeout
		}
	}
	if lg == nil {
		lg = logger.Get()
	}
	return &Aggregator{sources: sources, logger: lg}, nil
}

// Len reports the number of configured sources.
func (a *Aggregator) Len() int {
	if a == nil {
		return 0
	}
	return len(a.sources)
}

// Score returns the external risk score, each source's result and the
// deduplicated sorted union of tags.
//
// A failed source contributes zero; the remaining weights are not
// renormalised. The sum is clamped to [0,1].
func (a *Aggregator) Score(ctx context.Context, ev model.TransactionEvent) (float64, []model.ExternalScore, []string) { //nolint:gocritic // value semantics
	if a.Len() == 0 {
		return 0, nil, []string{}
	}

	results := make([]model.ExternalScore, len(a.sources))
	var g errgroup.Group
	for i := range a.sources {
		i := i
		ws := a.sources[i]
		g.Go(func() error {
			results[i] = a.query(ctx, ws, ev)
			return nil
		})
	}
	_ = g.Wait()

	var total float64
	var tags []string
	for i := range results {
		if results[i].Failed() {
			continue
		}
		total += results[i].RiskScore * results[i].Weight
		tags = append(tags, results[i].Tags...)
	}
	return clamp(total), results, UnionTags(tags)
}

func (a *Aggregator) query(ctx context.Context, ws WeightedSource, ev model.TransactionEvent) model.ExternalScore { //nolint:gocritic // value semantics
	name := ws.Source.Name()
	ctx, cancel := context.WithTimeout(ctx, ws.Timeout)
	defer cancel()

	start := time.Now()
	rep, err := safeScore(ctx, ws.Source, ev)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	out := model.ExternalScore{Source: name, Weight: ws.Weight}
	if err != nil {
		metrics.RecordReputationRequest(name, "error", elapsed)
		a.logger.Warn(ctx, "reputation source failed",
			logger.String("source", name),
			logger.String("transaction_id", ev.ID),
			logger.Error(err))
		out.Err = err
		return out
	}
	metrics.RecordReputationRequest(name, "ok", elapsed)
	out.RiskScore = clamp(rep.RiskScore)
	out.Tags = rep.Tags
	return out
}

// safeScore turns a panicking source into a failed one.
func safeScore(ctx context.Context, s Source, ev model.TransactionEvent) (rep model.Reputation, err error) { //nolint:gocritic // value semantics
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Score(ctx, ev)
}

// UnionTags returns the sorted set of tags, never nil.
func UnionTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func clamp(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(1, math.Max(0, p))
}
