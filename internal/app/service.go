// Package service wires the fraud-scoring pipeline: the ingestion queue and
// scoring pool, the alert queue and dispatch pool, and the periodic
// telemetry and reconciliation tasks.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/fraudscope/internal/adapters/mq/queue"
	workerpool "github.com/okian/fraudscope/internal/adapters/mq/worker"
	"github.com/okian/fraudscope/internal/adapters/notify"
	"github.com/okian/fraudscope/internal/adapters/payment"
	"github.com/okian/fraudscope/internal/adapters/repository"
	"github.com/okian/fraudscope/internal/domain/classifier"
	"github.com/okian/fraudscope/internal/domain/dedupe"
	"github.com/okian/fraudscope/internal/domain/enrichment"
	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/internal/domain/scoring"
	"github.com/okian/fraudscope/pkg/logger"
	"github.com/okian/fraudscope/pkg/metrics"
)

// Default pipeline configuration.
const (
	defaultAlertWorkers      = 2
	defaultBatchSize         = 10
	defaultPollInterval      = time.Second
	defaultStatsInterval     = 60 * time.Second
	defaultReconcileInterval = 300 * time.Second
	defaultReconcileLookback = 60 * time.Minute
	defaultReconcileLimit    = 50
	defaultReconcileWindow   = 1000
	defaultDedupeSize        = 50000
	shutdownTimeout          = 10 * time.Second

	originSubmit    = "submit"
	originReconcile = "reconcile"
)

// SubmitStatus tells a producer what happened to a submitted event.
type SubmitStatus string

const (
	StatusAccepted  SubmitStatus = "accepted"
	StatusDuplicate SubmitStatus = "duplicate"
)

// Service owns the pipeline.
type Service struct {
	mu sync.Mutex

	// Collaborators
	store          repository.Store
	predictor      classifier.Predictor
	modelVersion   string
	sources        []scoring.WeightedSource
	paymentSources []payment.Source
	sinks          []notify.Sink

	// Configuration
	modelPath         string
	mode              model.ClassifierMode
	thresholds        scoring.Thresholds
	scoringWorkers    int
	alertWorkers      int
	batchSize         int
	pollInterval      time.Duration
	statsInterval     time.Duration
	reconcileInterval time.Duration
	reconcileLookback time.Duration
	reconcileLimit    int
	reconcileWindow   int
	historyWindow     int
	velocityWindow    int
	dedupeSize        int
	clock             func() time.Time

	// Built on Start
	engine      *scoring.Engine
	enricher    *enrichment.Engine
	deduper     dedupe.Deduper
	ingestion   *eventqueue.InMemoryQueue[model.TransactionEvent]
	alertQueue  *eventqueue.InMemoryQueue[model.AlertPayload]
	scoringPool *workerpool.Pool[model.TransactionEvent]
	alertPool   *workerpool.Pool[model.AlertPayload]
	cancel      context.CancelFunc
	tasks       sync.WaitGroup

	// State
	running   atomic.Bool
	startedAt time.Time
	counters  counters

	logger logger.Logger
}

// counters are shared by every worker and read by telemetry.
type counters struct {
	processed  atomic.Int64
	fraud      atomic.Int64
	duplicates atomic.Int64
	malformed  atomic.Int64
	dropped    atomic.Int64
	alerts     atomic.Int64
	reconciled atomic.Int64
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		mode:              model.ModeEnsemble,
		thresholds:        scoring.DefaultThresholds(),
		scoringWorkers:    runtime.NumCPU(),
		alertWorkers:      defaultAlertWorkers,
		batchSize:         defaultBatchSize,
		pollInterval:      defaultPollInterval,
		statsInterval:     defaultStatsInterval,
		reconcileInterval: defaultReconcileInterval,
		reconcileLookback: defaultReconcileLookback,
		reconcileLimit:    defaultReconcileLimit,
		reconcileWindow:   defaultReconcileWindow,
		historyWindow:     enrichment.DefaultHistoryWindow,
		velocityWindow:    enrichment.DefaultVelocityWindow,
		dedupeSize:        defaultDedupeSize,
		clock:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the classifier, builds the pipeline and launches every
// worker and periodic task. A missing classifier aborts startup.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("pipeline")
	}

	if s.predictor == nil {
		c, err := classifier.Load(s.modelPath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
		}
		s.predictor, s.modelVersion = c, c.Version()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "no store configured, using in-memory store")
	}

	aggregator, err := scoring.NewAggregator(s.logger.Named("reputation"), s.sources...)
	if err != nil {
		return err
	}
	if err := s.thresholds.Validate(); err != nil {
		return err
	}
	s.engine = scoring.NewEngine(s.predictor,
		scoring.WithMode(s.mode),
		scoring.WithAggregator(aggregator),
		scoring.WithThresholds(s.thresholds),
		scoring.WithClock(s.clock),
	)
	s.enricher = enrichment.New(s.store,
		enrichment.WithHistoryWindow(s.historyWindow),
		enrichment.WithVelocityWindow(s.velocityWindow),
		enrichment.WithClock(s.clock),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.ingestion = eventqueue.NewInMemoryQueue[model.TransactionEvent](eventqueue.WithName("ingestion"))
	s.alertQueue = eventqueue.NewInMemoryQueue[model.AlertPayload](eventqueue.WithName("alerts"))

	poolOpts := []workerpool.Option{
		workerpool.WithBatchSize(s.batchSize),
		workerpool.WithPollInterval(s.pollInterval),
		workerpool.WithLogger(s.logger),
	}
	s.scoringPool = workerpool.NewPool[model.TransactionEvent](s.scoringWorkers, s.ingestion,
		workerpool.HandlerFunc[model.TransactionEvent](s.processTransaction),
		append(poolOpts, workerpool.WithName("scoring"))...)
	s.alertPool = workerpool.NewPool[model.AlertPayload](s.alertWorkers, s.alertQueue,
		workerpool.HandlerFunc[model.AlertPayload](s.dispatchAlert),
		append(poolOpts, workerpool.WithName("alert"))...)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.counters = counters{}
	s.startedAt = s.clock()
	s.running.Store(true)

	s.scoringPool.Start(runCtx)
	s.alertPool.Start(runCtx)
	s.runPeriodic(runCtx, s.statsInterval, s.reportTelemetry)
	if len(s.paymentSources) > 0 {
		s.runPeriodic(runCtx, s.reconcileInterval, func(ctx context.Context) {
			_, _ = s.Reconcile(ctx)
		})
	}

	s.logger.Info(ctx, "fraud pipeline started",
		logger.String("model_version", s.modelVersion),
		logger.String("mode", string(s.engine.Mode())),
		logger.Int("scoring_workers", s.scoringPool.Size()),
		logger.Int("alert_workers", s.alertPool.Size()),
		logger.Int("reputation_sources", aggregator.Len()),
		logger.Int("payment_sources", len(s.paymentSources)),
		logger.Int("alert_sinks", len(s.sinks)),
	)
	return nil
}

// runPeriodic calls fn every interval until ctx is cancelled.
func (s *Service) runPeriodic(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// Stop flips the shutdown flag, waits for workers to finish their current
// batch and closes the store. Items still queued are abandoned.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.logger.Info(ctx, "stopping fraud pipeline...")

	s.cancel()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	errs := []error{
		s.scoringPool.Shutdown(shutdownCtx),
		s.alertPool.Shutdown(shutdownCtx),
	}
	s.tasks.Wait()

	abandoned := s.ingestion.Len()
	_ = s.ingestion.Close()
	_ = s.alertQueue.Close()
	errs = append(errs, s.store.Close())

	s.logger.Info(ctx, "fraud pipeline stopped",
		logger.Int64("processed", s.counters.processed.Load()),
		logger.Int("abandoned", abandoned),
	)
	return errors.Join(errs...)
}

// Running reports whether the pipeline accepts work.
func (s *Service) Running() bool { return s.running.Load() }

// NewTransactionID returns "TXN_" followed by 8 hex characters of a random UUID.
func NewTransactionID() string {
	return "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Submit puts ev on the ingestion queue. An empty id is generated, a
// zero arrival time is set to now. Ids already in flight are reported as
// duplicates and not enqueued again.
func (s *Service) Submit(ctx context.Context, ev model.TransactionEvent) (string, SubmitStatus, error) { //nolint:gocritic // value semantics
	if !s.running.Load() {
		return "", "", ErrNotRunning
	}
	if ev.ID == "" {
		ev.ID = NewTransactionID()
	}
	if ev.ArrivalTime.IsZero() {
		ev.ArrivalTime = s.clock()
	}
	status, err := s.enqueue(ctx, ev, originSubmit)
	return ev.ID, status, err
}

func (s *Service) enqueue(ctx context.Context, ev model.TransactionEvent, origin string) (SubmitStatus, error) { //nolint:gocritic // value semantics
	if s.deduper.SeenAndRecord(ctx, ev.ID) {
		s.logger.Debug(ctx, "transaction already in flight", logger.String("transaction_id", ev.ID))
		return StatusDuplicate, nil
	}
	if !s.ingestion.Enqueue(ctx, ev) {
		s.deduper.Unrecord(ctx, ev.ID)
		return "", ErrQueueClosed
	}
	metrics.RecordTransactionReceived(origin)
	return StatusAccepted, nil
}

// SetThresholds hot-swaps the risk thresholds.
func (s *Service) SetThresholds(t scoring.Thresholds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		if err := s.engine.SetThresholds(t); err != nil {
			return err
		}
	} else if err := t.Validate(); err != nil {
		return err
	}
	s.thresholds = t
	return nil
}

// Statistics returns an eventually consistent snapshot of the counters.
func (s *Service) Statistics() model.ProcessorStatistics {
	st := model.ProcessorStatistics{
		Running:          s.running.Load(),
		Processed:        s.counters.processed.Load(),
		FraudDetected:    s.counters.fraud.Load(),
		Duplicates:       s.counters.duplicates.Load(),
		Malformed:        s.counters.malformed.Load(),
		AlertsDispatched: s.counters.alerts.Load(),
		Reconciled:       s.counters.reconciled.Load(),
	}
	st.FraudRate = model.FraudRate(st.FraudDetected, st.Processed)
	if !st.Running {
		return st
	}
	st.Uptime = s.clock().Sub(s.startedAt)
	st.UptimeSeconds = st.Uptime.Seconds()
	st.Failed = s.scoringPool.Failed()
	st.QueueDepth = s.ingestion.Len()
	st.AlertQueueDepth = s.alertQueue.Len()
	st.ScoringWorkers = s.scoringPool.Size()
	st.AlertWorkers = s.alertPool.Size()
	return st
}

// RecentTransactions returns up to limit persisted records, newest first.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]model.TransactionRecord, error) {
	if !s.running.Load() {
		return nil, ErrNotRunning
	}
	return s.store.GetRecent(ctx, limit)
}

// OpenAlerts lists unresolved alerts.
func (s *Service) OpenAlerts(ctx context.Context) ([]model.OpenAlert, error) {
	if !s.running.Load() {
		return nil, ErrNotRunning
	}
	return s.store.GetOpenAlerts(ctx)
}

// ResolveAlert marks an open alert as resolved.
func (s *Service) ResolveAlert(ctx context.Context, id int64) error {
	if !s.running.Load() {
		return ErrNotRunning
	}
	return s.store.ResolveAlert(ctx, id)
}

// StoreStatistics returns aggregate counts from the store.
func (s *Service) StoreStatistics(ctx context.Context) (model.StoreStatistics, error) {
	if !s.running.Load() {
		return model.StoreStatistics{}, ErrNotRunning
	}
	return s.store.GetStatistics(ctx)
}
