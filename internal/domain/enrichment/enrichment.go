// Package enrichment derives temporal, per-user and velocity features for
// a transaction from the recent history held in the store.
package enrichment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/fraudscope/internal/domain/model"
)

// Default enrichment configuration constants.
const (
	DefaultHistoryWindow  = 100
	DefaultVelocityWindow = 1000
	// velocity counts records from the trailing day
	velocitySpan = 24 * time.Hour

	merchantRiskPlaceholder      = 0.1
	merchantFraudRatePlaceholder = 0.05

	// values used when the user has no trailing history
	noHistoryTransactionsToday = 1
	noHistoryVelocity          = 0.1
	noHistoryDeviation         = 0.5
)

// History reads the most recent persisted transactions, newest first.
type History interface {
	GetRecent(ctx context.Context, limit int) ([]model.TransactionRecord, error)
}

// Engine computes features. It is stateless apart from its configuration
// and safe for concurrent use.
type Engine struct {
	history        History
	historyWindow  int
	velocityWindow int
	clock          func() time.Time
}

// New creates an enrichment engine reading from history.
func New(history History, opts ...Option) *Engine {
	e := &Engine{
		history:        history,
		historyWindow:  DefaultHistoryWindow,
		velocityWindow: DefaultVelocityWindow,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns ev with its derived features. Temporal features use the
// processing instant, not the event's arrival time.
func (e *Engine) Enrich(ctx context.Context, ev model.TransactionEvent) (model.EnrichedTransaction, error) { //nolint:gocritic // value semantics
	now := e.clock()
	out := model.EnrichedTransaction{Event: ev}
	f := &out.Features

	f.HourOfDay = now.Hour()
	f.DayOfWeek = mondayFirst(now.Weekday())
	f.IsWeekend = f.DayOfWeek >= 5

	window := e.historyWindow
	if e.velocityWindow > window {
		window = e.velocityWindow
	}
	recent, err := e.history.GetRecent(ctx, window)
	if err != nil {
		return model.EnrichedTransaction{}, fmt.Errorf("read history: %w", err)
	}

	userAggregates(f, ev.UserID, prefix(recent, e.historyWindow))
	velocity(f, ev, prefix(recent, e.velocityWindow), now.Add(-velocitySpan))

	if ev.Merchant != "" {
		f.MerchantRiskScore = merchantRiskPlaceholder
		f.MerchantFraudRate = merchantFraudRatePlaceholder
	}
	return out, nil
}

func prefix(recs []model.TransactionRecord, n int) []model.TransactionRecord {
	if n < len(recs) {
		return recs[:n]
	}
	return recs
}

// mondayFirst maps time.Weekday (Sunday=0) to Monday=0 ... Sunday=6.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func userAggregates(f *model.Features, userID string, recs []model.TransactionRecord) {
	var count, fraud int
	var total float64
	for i := range recs {
		if recs[i].UserID != userID {
			continue
		}
		count++
		total += recs[i].Amount
		if recs[i].IsFraud {
			fraud++
		}
	}
	if count == 0 {
		return
	}
	f.UserTransactionCount = count
	f.UserAvgAmount = total / float64(count)
	f.UserFraudRate = float64(fraud) / float64(count)
}

func velocity(f *model.Features, ev model.TransactionEvent, recs []model.TransactionRecord, since time.Time) { //nolint:gocritic // value semantics
	var n int
	var total float64
	for i := range recs {
		if recs[i].UserID != ev.UserID || !recs[i].ProcessedAt.After(since) {
			continue
		}
		n++
		total += recs[i].Amount
	}

	if n == 0 {
		f.NumTransactionsToday = noHistoryTransactionsToday
		f.VelocityScore = noHistoryVelocity
		f.AmountDeviation = noHistoryDeviation
		return
	}

	avg := total / float64(n)
	f.TransactionsLast24h = n
	f.NumTransactionsToday = n + 1
	f.AvgTransactionAmount = avg
	f.VelocityScore = math.Min(float64(n)/10, 1)
	if avg > 0 {
		f.AmountDeviation = math.Abs(ev.Amount-avg) / math.Max(avg, 1)
	}
}
