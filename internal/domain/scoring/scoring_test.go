package scoring_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fraudscope/internal/domain/classifier"
	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/internal/domain/scoring"
	"github.com/okian/fraudscope/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fixedSource struct {
	name  string
	score float64
	tags  []string
	err   error
	delay time.Duration
	panic bool
}

func (s fixedSource) Name() string { return s.name }

func (s fixedSource) Score(ctx context.Context, _ model.TransactionEvent) (model.Reputation, error) {
	if s.panic {
		panic("bad source")
	}
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return model.Reputation{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return model.Reputation{}, s.err
	}
	return model.Reputation{RiskScore: s.score, Tags: s.tags}, nil
}

type fixedPredictor struct {
	p   float64
	err error
}

func (f fixedPredictor) Predict(_ classifier.Vector, mode model.ClassifierMode) (model.InternalScore, error) {
	return model.InternalScore{Probability: f.p, IsFraud: f.p > 0.5, Mode: mode}, f.err
}

func scenarioA() model.EnrichedTransaction {
	return model.EnrichedTransaction{
		Event: model.TransactionEvent{
			ID: "TXN_A", UserID: "u1", Amount: 2500, Merchant: "electronics",
			Payment: &model.PaymentMetadata{Signals: map[string]float64{
				classifier.FeatureAccountAgeDays:    5,
				classifier.FeatureMerchantRiskScore: 0.8,
				classifier.FeatureCrossBorder:       1,
				classifier.FeatureHighRiskMerchant:  1,
			}},
		},
		Features: model.Features{NumTransactionsToday: 1, VelocityScore: 0.1, AmountDeviation: 0.5},
	}
}

func TestThresholds(t *testing.T) {
	Convey("Given the default thresholds", t, func() {
		th := scoring.DefaultThresholds()

		Convey("Then the boundaries belong to the upper bucket", func() {
			So(th.Level(0), ShouldEqual, model.RiskLow)
			So(th.Level(0.2999), ShouldEqual, model.RiskLow)
			So(th.Level(0.3), ShouldEqual, model.RiskMedium)
			So(th.Level(0.6999), ShouldEqual, model.RiskMedium)
			So(th.Level(0.7), ShouldEqual, model.RiskHigh)
			So(th.Level(1), ShouldEqual, model.RiskHigh)
		})
	})

	Convey("Given inverted thresholds", t, func() {
		err := scoring.Thresholds{Low: 0.8, High: 0.2}.Validate()

		Convey("Then they are rejected", func() {
			So(errors.Is(err, scoring.ErrInvalidThresholds), ShouldBeTrue)
		})
	})
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()
	ev := model.TransactionEvent{ID: "TXN_1", UserID: "u1", Amount: 10}

	Convey("Given two sources returning full risk", t, func() {
		agg, err := scoring.NewAggregator(nil,
			scoring.WeightedSource{Source: fixedSource{name: "a", score: 1, tags: []string{"vpn_ip"}}, Weight: 0.4},
			scoring.WeightedSource{Source: fixedSource{name: "b", score: 1, tags: []string{"disposable_email", "vpn_ip"}}, Weight: 0.3},
		)
		So(err, ShouldBeNil)
		score, sources, tags := agg.Score(ctx, ev)

		Convey("Then the score is the weighted sum", func() {
			So(score, ShouldAlmostEqual, 0.7)
			So(sources, ShouldHaveLength, 2)
		})

		Convey("Then tags are a sorted deduplicated union", func() {
			So(tags, ShouldResemble, []string{"disposable_email", "vpn_ip"})
		})
	})

	Convey("Given a failing, a panicking and a slow source", t, func() {
		agg, err := scoring.NewAggregator(nil,
			scoring.WeightedSource{Source: fixedSource{name: "ok", score: 0.5, tags: []string{"t"}}, Weight: 0.4},
			scoring.WeightedSource{Source: fixedSource{name: "down", err: errors.New("503"), tags: []string{"x"}}, Weight: 0.3},
			scoring.WeightedSource{Source: fixedSource{name: "boom", panic: true}, Weight: 0.2},
			scoring.WeightedSource{Source: fixedSource{name: "slow", score: 1, delay: time.Second}, Weight: 0.1, Timeout: 10 * time.Millisecond},
		)
		So(err, ShouldBeNil)
		score, sources, tags := agg.Score(ctx, ev)

		Convey("Then failures contribute nothing and weights are not renormalised", func() {
			So(score, ShouldAlmostEqual, 0.2)
			So(tags, ShouldResemble, []string{"t"})
			failed := 0
			for _, s := range sources {
				if s.Failed() {
					failed++
				}
			}
			So(failed, ShouldEqual, 3)
		})
	})

	Convey("Given sources whose weighted sum exceeds one", t, func() {
		agg, _ := scoring.NewAggregator(nil,
			scoring.WeightedSource{Source: fixedSource{name: "a", score: 3}, Weight: 0.9},
			scoring.WeightedSource{Source: fixedSource{name: "b", score: 1}, Weight: 0.9},
		)
		score, _, _ := agg.Score(ctx, ev)

		Convey("Then scores and the sum are clamped", func() {
			So(score, ShouldEqual, 1)
		})
	})

	Convey("Given a negative weight", t, func() {
		_, err := scoring.NewAggregator(nil, scoring.WeightedSource{Source: fixedSource{name: "a"}, Weight: -1})
		So(errors.Is(err, scoring.ErrInvalidWeight), ShouldBeTrue)
	})

	Convey("Given no sources", t, func() {
		var agg *scoring.Aggregator
		score, sources, tags := agg.Score(ctx, ev)
		So(score, ShouldEqual, 0)
		So(sources, ShouldBeEmpty)
		So(tags, ShouldNotBeNil)
	})
}

func TestEngine(t *testing.T) {
	ctx := context.Background()
	c, err := classifier.Load("")
	if err != nil {
		t.Fatalf("load classifier: %v", err)
	}

	Convey("Given scenario A without reputation sources", t, func() {
		e := scoring.NewEngine(c)
		a, err := e.Assess(ctx, scenarioA())
		So(err, ShouldBeNil)

		Convey("Then the combined probability is the internal share only", func() {
			So(a.ExternalRiskScore, ShouldEqual, 0)
			So(a.CombinedProbability, ShouldAlmostEqual, a.InternalProbability*0.6, 1e-12)
			So(a.RiskLevel, ShouldEqual, e.Thresholds().Level(a.CombinedProbability))
			So(a.IsFraud, ShouldEqual, a.CombinedProbability > 0.5)
			So(a.Mode, ShouldEqual, model.ModeEnsemble)
			So(e.Mode(), ShouldEqual, model.ModeEnsemble)
		})

		Convey("And an empty mode option keeps the default", func() {
			So(scoring.NewEngine(c, scoring.WithMode("")).Mode(), ShouldEqual, model.ModeEnsemble)
		})
	})

	Convey("Given scenario B with two saturated sources", t, func() {
		agg, _ := scoring.NewAggregator(nil,
			scoring.WeightedSource{Source: fixedSource{name: "a", score: 1}, Weight: 0.4},
			scoring.WeightedSource{Source: fixedSource{name: "b", score: 1}, Weight: 0.3},
		)
		e := scoring.NewEngine(fixedPredictor{p: 0.9}, scoring.WithAggregator(agg))
		a, err := e.Assess(ctx, scenarioA())
		So(err, ShouldBeNil)

		Convey("Then the external score is 0.7 and the fusion follows", func() {
			So(a.ExternalRiskScore, ShouldAlmostEqual, 0.7)
			So(a.CombinedProbability, ShouldAlmostEqual, 0.9*0.6+0.7*0.4)
			So(a.RiskLevel, ShouldEqual, model.RiskHigh)
			So(a.IsFraud, ShouldBeTrue)
		})
	})

	Convey("Given thresholds swapped at runtime", t, func() {
		e := scoring.NewEngine(fixedPredictor{p: 0.5})
		before, _ := e.Assess(ctx, scenarioA())
		So(e.SetThresholds(scoring.Thresholds{Low: 0.1, High: 0.2}), ShouldBeNil)
		after, _ := e.Assess(ctx, scenarioA())

		Convey("Then later assessments use the new buckets", func() {
			So(before.RiskLevel, ShouldEqual, model.RiskMedium)
			So(after.RiskLevel, ShouldEqual, model.RiskHigh)
			So(e.SetThresholds(scoring.Thresholds{Low: 2, High: 3}), ShouldNotBeNil)
		})
	})

	Convey("Given an unavailable classifier", t, func() {
		e := scoring.NewEngine(fixedPredictor{err: classifier.ErrUnavailable})
		_, err := e.Assess(ctx, scenarioA())
		So(errors.Is(err, classifier.ErrUnavailable), ShouldBeTrue)
	})
}

func TestFusionProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 300
	properties := gopter.NewProperties(params)
	th := scoring.DefaultThresholds()

	properties.Property("combined probability stays in [0,1]", prop.ForAll(
		func(i, e float64) bool {
			p := scoring.Fuse(i, e)
			return p >= 0 && p <= 1
		},
		gen.Float64Range(-2, 3), gen.Float64Range(-2, 3),
	))

	properties.Property("fusion is monotone in both inputs", prop.ForAll(
		func(i, e, d float64) bool {
			base := scoring.Fuse(i, e)
			return scoring.Fuse(math.Min(i+d, 1), e) >= base && scoring.Fuse(i, math.Min(e+d, 1)) >= base
		},
		gen.Float64Range(0, 1), gen.Float64Range(0, 1), gen.Float64Range(0, 1),
	))

	properties.Property("high risk iff p >= 0.7, medium iff p in [0.3,0.7)", prop.ForAll(
		func(p float64) bool {
			switch th.Level(p) {
			case model.RiskHigh:
				return p >= 0.7
			case model.RiskMedium:
				return p >= 0.3 && p < 0.7
			default:
				return p < 0.3
			}
		},
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
