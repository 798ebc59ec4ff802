// Package notify delivers high-risk alerts to operators.
package notify

import (
	"context"
	"errors"

	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/pkg/logger"
)

// ErrDeliveryFailed wraps sink-specific delivery errors.
var ErrDeliveryFailed = errors.New("alert delivery failed")

// Sink delivers an alert somewhere. Implementations must be safe for
// concurrent use.
type Sink interface {
	Name() string
	Notify(ctx context.Context, alert model.AlertPayload) error
}

// LogSink writes alerts to the structured log.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink creates a log sink; a nil logger uses the global one.
func NewLogSink(lg logger.Logger) *LogSink {
	if lg == nil {
		lg = logger.Named("alerts")
	}
	return &LogSink{logger: lg}
}

// Name returns "log".
func (s *LogSink) Name() string { return "log" }

// Notify writes the alert as one structured log line. It never fails.
func (s *LogSink) Notify(ctx context.Context, alert model.AlertPayload) error { //nolint:gocritic // value semantics
	s.logger.Warn(ctx, alert.Message(),
		logger.String("transaction_id", alert.TransactionID),
		logger.String("user_id", alert.UserID),
		logger.Float64("amount", alert.Amount),
		logger.Float64("probability", alert.CombinedProbability),
		logger.Strings("tags", alert.Tags),
	)
	return nil
}
