package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/pkg/logger"
	"github.com/okian/fraudscope/pkg/metrics"
	"github.com/okian/fraudscope/pkg/tracing"
)

// Pipeline stages, used for drop accounting.
const (
	stageEnrich  = "enrich"
	stageScore   = "score"
	stagePersist = "persist"
	stageAlert   = "alert"
)

// processTransaction drives one event through enrich, score, persist and
// the conditional alert hand-off. A returned error drops the item; the
// pool logs and counts it.
func (s *Service) processTransaction(ctx context.Context, ev model.TransactionEvent) (err error) { //nolint:gocritic // value semantics
	start := time.Now()
	ctx, span := tracing.Start(ctx, "transaction.process", ev.ID)

	settled := false
	defer func() {
		if !settled {
			// dropped or panicked: allow a later producer to replay it
			s.deduper.Unrecord(ctx, ev.ID)
		}
		tracing.End(span, err)
	}()

	if verr := ev.Validate(); verr != nil {
		s.counters.malformed.Add(1)
		metrics.RecordTransactionMalformed()
		s.logger.Warn(ctx, "malformed transaction dropped",
			logger.String("transaction_id", ev.ID), logger.Error(verr))
		return nil
	}

	enriched, err := s.enrich(ctx, ev)
	if err != nil {
		return s.drop(stageEnrich, ev.ID, err)
	}

	assessment, err := s.assess(ctx, enriched)
	if err != nil {
		return s.drop(stageScore, ev.ID, err)
	}

	rec := model.NewTransactionRecord(enriched, assessment)
	rec.ModelVersion = fmt.Sprintf("%s/%s", s.modelVersion, assessment.Mode)
	pctx, pspan := tracing.Start(ctx, stagePersist, ev.ID)
	inserted, err := s.store.InsertTransaction(pctx, rec)
	tracing.End(pspan, err)
	if err != nil {
		return s.drop(stagePersist, ev.ID, err)
	}
	settled = true

	if !inserted {
		s.counters.duplicates.Add(1)
		metrics.RecordTransactionDuplicate()
		s.logger.Debug(ctx, "transaction already stored", logger.String("transaction_id", ev.ID))
		return nil
	}

	s.counters.processed.Add(1)
	if assessment.IsFraud {
		s.counters.fraud.Add(1)
	}
	metrics.RecordTransactionProcessed(assessment.IsFraud, string(assessment.RiskLevel), assessment.CombinedProbability)

	if assessment.RiskLevel == model.RiskHigh {
		payload := model.AlertPayload{
			TransactionID:       ev.ID,
			UserID:              ev.UserID,
			Amount:              ev.Amount,
			CombinedProbability: assessment.CombinedProbability,
			Tags:                assessment.Tags,
			Timestamp:           assessment.AssessedAt,
		}
		if !s.alertQueue.Enqueue(ctx, payload) {
			metrics.RecordTransactionDropped(stageAlert)
			s.logger.Error(ctx, "alert queue closed, alert lost", logger.String("transaction_id", ev.ID))
		}
	}

	metrics.RecordProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	s.logger.Debug(ctx, "transaction assessed",
		logger.String("transaction_id", ev.ID),
		logger.Float64("probability", assessment.CombinedProbability),
		logger.String("risk_level", string(assessment.RiskLevel)),
		logger.Strings("tags", assessment.Tags),
	)
	return nil
}

func (s *Service) enrich(ctx context.Context, ev model.TransactionEvent) (model.EnrichedTransaction, error) { //nolint:gocritic // value semantics
	ctx, span := tracing.Start(ctx, stageEnrich, ev.ID)
	tx, err := s.enricher.Enrich(ctx, ev)
	tracing.End(span, err)
	return tx, err
}

func (s *Service) assess(ctx context.Context, tx model.EnrichedTransaction) (model.Assessment, error) { //nolint:gocritic // value semantics
	ctx, span := tracing.Start(ctx, stageScore, tx.Event.ID)
	a, err := s.engine.Assess(ctx, tx)
	tracing.End(span, err)
	return a, err
}

func (s *Service) drop(stage, id string, err error) error {
	s.counters.dropped.Add(1)
	metrics.RecordTransactionDropped(stage)
	return fmt.Errorf("%s %s: %w", stage, id, err)
}
