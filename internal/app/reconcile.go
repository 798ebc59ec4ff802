package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/fraudscope/pkg/logger"
	"github.com/okian/fraudscope/pkg/metrics"
)

// Reconcile pulls recent transactions from every payment source and
// enqueues the ones neither stored nor in flight. It returns how many were
// injected. One failing source does not stop the others.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	if !s.running.Load() {
		return 0, ErrNotRunning
	}
	if len(s.paymentSources) == 0 {
		return 0, ErrNoPaymentSource
	}

	recent, err := s.store.GetRecent(ctx, s.reconcileWindow)
	if err != nil {
		metrics.RecordReconcileRun("error", 0)
		s.logger.Error(ctx, "reconciliation aborted", logger.Error(err))
		return 0, fmt.Errorf("read stored transactions: %w", err)
	}
	known := make(map[string]struct{}, len(recent))
	for i := range recent {
		known[recent[i].TransactionID] = struct{}{}
	}

	since := s.clock().Add(-s.reconcileLookback)
	injected := 0
	var errs []error
	for _, src := range s.paymentSources {
		events, err := src.ListRecent(ctx, since, s.reconcileLimit)
		if err != nil {
			s.logger.Warn(ctx, "payment source failed", logger.String("source", src.Name()), logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		for i := range events {
			if _, ok := known[events[i].ID]; ok {
				continue
			}
			status, err := s.enqueue(ctx, events[i], originReconcile)
			if err != nil {
				errs = append(errs, err)
				break
			}
			if status == StatusAccepted {
				injected++
			}
		}
	}

	s.counters.reconciled.Add(int64(injected))
	status := "ok"
	if len(errs) > 0 {
		status = "error"
	}
	metrics.RecordReconcileRun(status, injected)
	s.logger.Info(ctx, "reconciliation finished",
		logger.Int("injected", injected),
		logger.Int("sources", len(s.paymentSources)))
	return injected, errors.Join(errs...)
}
