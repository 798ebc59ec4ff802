package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fraudscope/internal/domain/model"
)

func record(id, user string, amount, prob float64, level model.RiskLevel, at time.Time) model.TransactionRecord {
	return model.TransactionRecord{
		TransactionID:    id,
		UserID:           user,
		Amount:           amount,
		Merchant:         "acme",
		IsFraud:          prob > 0.5,
		FraudProbability: prob,
		RiskLevel:        level,
		ModelVersion:     "ensemble",
		Tags:             []string{"vpn_ip"},
		Features:         model.Features{VelocityScore: 0.2, NumTransactionsToday: 3},
		ProcessedAt:      at,
	}
}

// storeContract exercises the behaviour every Store must share.
func storeContract(t *testing.T, name string, newStore func(t *testing.T) Store) {
	Convey("Given an empty "+name+" store", t, func() {
		ctx := context.Background()
		s := newStore(t)
		defer s.Close()
		base := time.Unix(1_700_000_000, 0)

		Convey("When inserting a transaction twice", func() {
			first, err1 := s.InsertTransaction(ctx, record("TXN_1", "u1", 10, 0.2, model.RiskLow, base))
			second, err2 := s.InsertTransaction(ctx, record("TXN_1", "u1", 99, 0.9, model.RiskHigh, base))

			Convey("Then the duplicate is a silent no-op", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)

				recent, err := s.GetRecent(ctx, 10)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 1)
				So(recent[0].Amount, ShouldEqual, 10)
				So(recent[0].Tags, ShouldResemble, []string{"vpn_ip"})
				So(recent[0].Features.NumTransactionsToday, ShouldEqual, 3)
				So(recent[0].ProcessedAt.Equal(base), ShouldBeTrue)
			})
		})

		Convey("When several transactions are stored", func() {
			for i := 1; i <= 5; i++ {
				level := model.RiskLow
				prob := 0.1
				if i%2 == 0 {
					level, prob = model.RiskHigh, 0.9
				}
				_, err := s.InsertTransaction(ctx, record(fmt.Sprintf("TXN_%d", i), "u1", float64(i), prob, level, base.Add(time.Duration(i)*time.Second)))
				So(err, ShouldBeNil)
			}

			Convey("Then recent is most recent first and bounded by limit", func() {
				recent, err := s.GetRecent(ctx, 3)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 3)
				So(recent[0].TransactionID, ShouldEqual, "TXN_5")
				So(recent[2].TransactionID, ShouldEqual, "TXN_3")
			})

			Convey("Then statistics summarise the rows", func() {
				st, err := s.GetStatistics(ctx)
				So(err, ShouldBeNil)
				So(st.TotalTransactions, ShouldEqual, 5)
				So(st.FraudTransactions, ShouldEqual, 2)
				So(st.HighRiskTransactions, ShouldEqual, 2)
				So(st.FraudRate, ShouldAlmostEqual, 0.4)
				So(st.AvgFraudProbability, ShouldAlmostEqual, (3*0.1+2*0.9)/5)
				So(st.OpenAlerts, ShouldEqual, 0)
			})

			Convey("Then an invalid limit is rejected", func() {
				_, err := s.GetRecent(ctx, 0)
				So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When alerting", func() {
			_, err := s.InsertTransaction(ctx, record("TXN_HI", "u9", 500, 0.93, model.RiskHigh, base))
			So(err, ShouldBeNil)
			payload := model.AlertPayload{TransactionID: "TXN_HI", CombinedProbability: 0.93}

			Convey("Then an alert for a known transaction is open", func() {
				id, err := s.CreateAlert(ctx, model.NewHighRiskAlert(payload, base))
				So(err, ShouldBeNil)
				So(id, ShouldBeGreaterThan, 0)

				open, err := s.GetOpenAlerts(ctx)
				So(err, ShouldBeNil)
				So(len(open), ShouldEqual, 1)
				So(open[0].ID, ShouldEqual, id)
				So(open[0].UserID, ShouldEqual, "u9")
				So(open[0].Amount, ShouldEqual, 500)
				So(open[0].Severity, ShouldEqual, model.SeverityCritical)
				So(open[0].Message, ShouldContainSubstring, "93.00%")

				st, err := s.GetStatistics(ctx)
				So(err, ShouldBeNil)
				So(st.OpenAlerts, ShouldEqual, 1)

				Convey("And resolving it closes it exactly once", func() {
					So(s.ResolveAlert(ctx, id), ShouldBeNil)
					So(errors.Is(s.ResolveAlert(ctx, id), ErrAlertNotFound), ShouldBeTrue)
					open, err := s.GetOpenAlerts(ctx)
					So(err, ShouldBeNil)
					So(len(open), ShouldEqual, 0)
				})
			})

			Convey("Then an alert for an unknown transaction is refused", func() {
				_, err := s.CreateAlert(ctx, model.NewHighRiskAlert(model.AlertPayload{TransactionID: "nope"}, base))
				So(errors.Is(err, ErrTransactionNotFound), ShouldBeTrue)
			})
		})

		Convey("When many writers race on the same ids", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			inserted := 0
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 25; i++ {
						ok, err := s.InsertTransaction(ctx, record(fmt.Sprintf("TXN_%d", i), "u", 1, 0.1, model.RiskLow, base))
						if err == nil && ok {
							mu.Lock()
							inserted++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is stored exactly once", func() {
				So(inserted, ShouldEqual, 25)
				st, err := s.GetStatistics(ctx)
				So(err, ShouldBeNil)
				So(st.TotalTransactions, ShouldEqual, 25)
			})
		})
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, "memory", func(*testing.T) Store {
		return NewMemoryStore(WithShardCount(4))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, "sqlite", func(t *testing.T) Store {
		path := filepath.Join(t.TempDir(), fmt.Sprintf("fraud-%d.db", time.Now().UnixNano()))
		s, err := NewSQLStore(context.Background(), DriverSQLite, path+"?_busy_timeout=5000")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return s
	})
}

func TestNewSQLStoreUnsupportedDriver(t *testing.T) {
	Convey("Given an unknown driver", t, func() {
		_, err := NewSQLStore(context.Background(), "oracle", "dsn")
		So(errors.Is(err, ErrUnsupportedDriver), ShouldBeTrue)
	})
}

func TestRebind(t *testing.T) {
	Convey("Given a query with placeholders", t, func() {
		q := "SELECT a FROM t WHERE x = ? AND y = ?"

		Convey("Then postgres gets numbered parameters", func() {
			So(postgresDialect.rebind(q), ShouldEqual, "SELECT a FROM t WHERE x = $1 AND y = $2")
		})
		Convey("Then sqlite keeps question marks", func() {
			So(sqliteDialect.rebind(q), ShouldEqual, q)
		})
	})
}

func TestFeatureCodec(t *testing.T) {
	Convey("Given encoded features", t, func() {
		f := model.Features{HourOfDay: 23, IsWeekend: true, AmountDeviation: 1.5}
		blob, err := encodeFeatures(f, []string{"proxy_ip"})
		So(err, ShouldBeNil)

		Convey("Then decoding restores them", func() {
			got, tags, err := decodeFeatures(blob)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, f)
			So(tags, ShouldResemble, []string{"proxy_ip"})
		})

		Convey("Then garbage fails to decode", func() {
			_, _, err := decodeFeatures([]byte("not snappy"))
			So(err, ShouldNotBeNil)
		})

		Convey("Then an empty blob is zero", func() {
			got, tags, err := decodeFeatures(nil)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, model.Features{})
			So(tags, ShouldBeNil)
		})
	})
}
