package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/pkg/logger"
	"github.com/okian/fraudscope/pkg/metrics"
	"github.com/okian/fraudscope/pkg/tracing"
)

// dispatchAlert persists the alert record, then notifies every sink.
// A persist failure drops the alert without notifying; sink failures are
// only logged.
func (s *Service) dispatchAlert(ctx context.Context, p model.AlertPayload) (err error) { //nolint:gocritic // value semantics
	ctx, span := tracing.Start(ctx, "alert.dispatch", p.TransactionID)
	defer func() { tracing.End(span, err) }()

	id, err := s.store.CreateAlert(ctx, model.NewHighRiskAlert(p, s.clock()))
	if err != nil {
		metrics.RecordTransactionDropped(stageAlert)
		return fmt.Errorf("persist alert for %s: %w", p.TransactionID, err)
	}
	s.counters.alerts.Add(1)
	metrics.RecordAlertCreated()
	s.logger.Warn(ctx, "fraud alert raised",
		logger.Int64("alert_id", id),
		logger.String("transaction_id", p.TransactionID),
		logger.Float64("probability", p.CombinedProbability),
	)

	for _, sink := range s.sinks {
		if nerr := notifySafely(ctx, sink.Name(), func(ctx context.Context) error { return sink.Notify(ctx, p) }); nerr != nil {
			metrics.RecordAlertNotification(sink.Name(), "error")
			s.logger.Error(ctx, "alert notification failed",
				logger.String("sink", sink.Name()),
				logger.String("transaction_id", p.TransactionID),
				logger.Error(nerr))
			continue
		}
		metrics.RecordAlertNotification(sink.Name(), "ok")
	}
	return nil
}

const sinkTimeout = 10 * time.Second

var errSinkPanic = errors.New("alert sink panicked")

// notifySafely bounds a sink call and keeps a panicking sink from
// aborting the remaining ones.
func notifySafely(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", errSinkPanic, name, r)
		}
	}()
	return fn(ctx)
}
