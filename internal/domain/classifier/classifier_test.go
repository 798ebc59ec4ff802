package classifier

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fraudscope/internal/domain/model"
)

func scenarioA() Vector {
	v := DefaultVector()
	v.Set(FeatureTransactionAmount, 2500)
	v.Set(FeatureAccountAgeDays, 5)
	v.Set(FeatureMerchantRiskScore, 0.8)
	v.Set(FeatureCrossBorder, 1)
	v.Set(FeatureHighRiskMerchant, 1)
	return v
}

func lowRisk() Vector {
	v := DefaultVector()
	v.Set(FeatureTransactionAmount, 45)
	v.Set(FeatureAccountAgeDays, 365)
	v.Set(FeatureTimeSinceLastTransaction, 1440)
	return v
}

func TestLoad(t *testing.T) {
	Convey("Given the embedded default bundle", t, func() {
		c, err := Load("")

		Convey("Then the classifier is available", func() {
			So(err, ShouldBeNil)
			So(c.Version(), ShouldEqual, "v1.0")
		})
	})

	Convey("Given a missing model file", t, func() {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))

		Convey("Then the classifier is unavailable", func() {
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given a bundle with the wrong feature layout", t, func() {
		path := filepath.Join(t.TempDir(), "bad.json")
		So(os.WriteFile(path, []byte(`{"features":["a","b"],"linear":{},"forest":{}}`), 0o600), ShouldBeNil)
		_, err := Load(path)

		Convey("Then loading fails as unavailable", func() {
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
			So(errors.Is(err, ErrInvalidModel), ShouldBeTrue)
		})
	})

	Convey("Given a nil classifier", t, func() {
		var c *Classifier
		_, err := c.Predict(DefaultVector(), model.ModeEnsemble)
		So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
	})
}

func TestPredict(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load default bundle: %v", err)
	}

	Convey("Given the scenario A transaction", t, func() {
		v := scenarioA()

		Convey("Then each mode yields a probability in [0,1]", func() {
			for _, mode := range []model.ClassifierMode{model.ModeLinear, model.ModeForest, model.ModeEnsemble} {
				s, err := c.Predict(v, mode)
				So(err, ShouldBeNil)
				So(s.Probability, ShouldBeBetweenOrEqual, 0, 1)
				So(s.IsFraud, ShouldEqual, s.Probability > 0.5)
				So(s.Mode, ShouldEqual, mode)
			}
		})

		Convey("Then ensemble is the mean of both models", func() {
			lin, _ := c.Predict(v, model.ModeLinear)
			forest, _ := c.Predict(v, model.ModeForest)
			ens, _ := c.Predict(v, model.ModeEnsemble)
			So(ens.Probability, ShouldAlmostEqual, (lin.Probability+forest.Probability)/2, 1e-12)
		})

		Convey("Then it scores far above a low risk transaction", func() {
			high, _ := c.Predict(v, model.ModeLinear)
			low, _ := c.Predict(lowRisk(), model.ModeLinear)
			So(high.Probability, ShouldBeGreaterThan, 0.9)
			So(low.Probability, ShouldBeLessThan, 0.3)
		})

		Convey("Then repeated predictions are identical", func() {
			a, _ := c.Predict(v, model.ModeEnsemble)
			b, _ := c.Predict(v, model.ModeEnsemble)
			So(a, ShouldResemble, b)
		})
	})

	Convey("Given an unknown mode", t, func() {
		_, err := c.Predict(DefaultVector(), "svm")
		So(errors.Is(err, ErrUnknownMode), ShouldBeTrue)
	})
}

func TestPredictProperties(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load default bundle: %v", err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	genVector := gen.SliceOfN(NumFeatures, gen.Float64Range(-1e6, 1e6)).Map(func(xs []float64) Vector {
		var v Vector
		copy(v[:], xs)
		return v
	})

	properties.Property("probability stays in [0,1] and is deterministic", prop.ForAll(
		func(v Vector) bool {
			a, err := c.Predict(v, model.ModeEnsemble)
			if err != nil {
				return false
			}
			b, _ := c.Predict(v, model.ModeEnsemble)
			return a.Probability >= 0 && a.Probability <= 1 && !math.IsNaN(a.Probability) && a == b
		},
		genVector,
	))

	properties.TestingRun(t)
}

func TestVectorFrom(t *testing.T) {
	Convey("Given an enriched transaction with payment metadata", t, func() {
		tx := model.EnrichedTransaction{
			Event: model.TransactionEvent{
				ID: "TXN_1", UserID: "u1", Amount: 120, Merchant: "shop",
				Payment: &model.PaymentMetadata{
					BillingCountry: "US",
					CardCountry:    "NG",
					Signals:        map[string]float64{FeatureAccountAgeDays: 5, "unknown_signal": 9},
				},
			},
			Features: model.Features{
				HourOfDay: 3, DayOfWeek: 6, IsWeekend: true,
				NumTransactionsToday: 4, AvgTransactionAmount: 80,
				VelocityScore: 0.3, AmountDeviation: 0.5, MerchantRiskScore: 0.1,
			},
		}

		v := VectorFrom(tx)

		Convey("Then derived features and signals land in their slots", func() {
			So(v.Get(FeatureTransactionAmount), ShouldEqual, 120)
			So(v.Get(FeatureNumTransactionsToday), ShouldEqual, 4)
			So(v.Get(FeatureIsWeekend), ShouldEqual, 1)
			So(v.Get(FeatureDayOfWeek), ShouldEqual, 6)
			So(v.Get(FeatureCrossBorder), ShouldEqual, 1)
			So(v.Get(FeatureAccountAgeDays), ShouldEqual, 5)
			So(v.Get(FeatureDeviceRiskScore), ShouldEqual, 0.1)
			So(v.Get("unknown_signal"), ShouldEqual, 0)
		})
	})
}

func TestVectorFromSignalsCannotReplaceDerivedFeatures(t *testing.T) {
	Convey("Given signals naming features that enrichment derives", t, func() {
		tx := model.EnrichedTransaction{
			Event: model.TransactionEvent{
				ID: "TXN_2", UserID: "u1", Amount: 50, Merchant: "shop",
				Payment: &model.PaymentMetadata{Signals: map[string]float64{
					FeatureHourOfDay:                3,
					FeatureVelocityScore:            0,
					FeatureNumTransactionsToday:     1,
					FeatureTransactionAmount:        1,
					FeatureIsWeekend:                1,
					FeatureMerchantRiskScore:        0.8,
					FeatureTimeSinceLastTransaction: 2,
				}},
			},
			Features: model.Features{
				HourOfDay: 14, DayOfWeek: 2, VelocityScore: 1,
				NumTransactionsToday: 40, MerchantRiskScore: 0.1,
			},
		}

		v := VectorFrom(tx)

		Convey("Then the derived values win", func() {
			So(v.Get(FeatureHourOfDay), ShouldEqual, 14)
			So(v.Get(FeatureVelocityScore), ShouldEqual, 1)
			So(v.Get(FeatureNumTransactionsToday), ShouldEqual, 40)
			So(v.Get(FeatureTransactionAmount), ShouldEqual, 50)
			So(v.Get(FeatureIsWeekend), ShouldEqual, 0)
		})

		Convey("Then inputs enrichment does not compute still come from signals", func() {
			So(v.Get(FeatureTimeSinceLastTransaction), ShouldEqual, 2)
			So(v.Get(FeatureMerchantRiskScore), ShouldEqual, 0.8)
		})
	})
}

func TestParseMode(t *testing.T) {
	Convey("Mode names parse", t, func() {
		m, err := ParseMode("")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, model.ModeEnsemble)
		m, err = ParseMode("forest")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, model.ModeForest)
		_, err = ParseMode("rf")
		So(errors.Is(err, ErrUnknownMode), ShouldBeTrue)
	})
}
