package service

import (
	"time"

	"github.com/okian/fraudscope/internal/adapters/notify"
	"github.com/okian/fraudscope/internal/adapters/payment"
	"github.com/okian/fraudscope/internal/adapters/repository"
	"github.com/okian/fraudscope/internal/domain/classifier"
	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/internal/domain/scoring"
	"github.com/okian/fraudscope/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistent store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClassifier injects a ready predictor instead of loading a bundle.
func WithClassifier(p classifier.Predictor, version string) Option {
	return func(s *Service) {
		s.predictor = p
		s.modelVersion = version
	}
}

// WithModelPath sets the bundle loaded on Start; empty means the embedded one.
func WithModelPath(path string) Option {
	return func(s *Service) { s.modelPath = path }
}

// WithClassifierMode selects linear, forest or ensemble.
func WithClassifierMode(mode model.ClassifierMode) Option {
	return func(s *Service) {
		if mode != "" {
			s.mode = mode
		}
	}
}

// WithThresholds sets the risk thresholds.
func WithThresholds(t scoring.Thresholds) Option {
	return func(s *Service) { s.thresholds = t }
}

// WithReputationSources configures the external score sources.
func WithReputationSources(sources ...scoring.WeightedSource) Option {
	return func(s *Service) { s.sources = append(s.sources, sources...) }
}

// WithPaymentSources configures what reconciliation pulls from.
func WithPaymentSources(sources ...payment.Source) Option {
	return func(s *Service) { s.paymentSources = append(s.paymentSources, sources...) }
}

// WithSinks configures where alerts are delivered.
func WithSinks(sinks ...notify.Sink) Option {
	return func(s *Service) { s.sinks = append(s.sinks, sinks...) }
}

// WithScoringWorkers sets the number of scoring workers.
func WithScoringWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scoringWorkers = n
		}
	}
}

// WithAlertWorkers sets the number of alert dispatch workers.
func WithAlertWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.alertWorkers = n
		}
	}
}

// WithBatchSize sets how many items a worker pulls at once.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithPollInterval sets the idle worker back-off.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithStatsInterval sets the telemetry period.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsInterval = d
		}
	}
}

// WithReconcile configures the reconciliation period, lookback, per-run
// limit and how many stored records are compared against.
func WithReconcile(interval, lookback time.Duration, limit, window int) Option {
	return func(s *Service) {
		if interval > 0 {
			s.reconcileInterval = interval
		}
		if lookback > 0 {
			s.reconcileLookback = lookback
		}
		if limit > 0 {
			s.reconcileLimit = limit
		}
		if window > 0 {
			s.reconcileWindow = window
		}
	}
}

// WithEnrichmentWindows sets the user-history and velocity windows.
func WithEnrichmentWindows(history, velocity int) Option {
	return func(s *Service) {
		if history > 0 {
			s.historyWindow = history
		}
		if velocity > 0 {
			s.velocityWindow = velocity
		}
	}
}

// WithDedupeSize sets how many in-flight ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the processing-time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}
