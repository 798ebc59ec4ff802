package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/fraudscope/internal/adapters/http/api"
	"github.com/okian/fraudscope/internal/adapters/notify"
	"github.com/okian/fraudscope/internal/adapters/payment"
	"github.com/okian/fraudscope/internal/adapters/repository"
	"github.com/okian/fraudscope/internal/adapters/reputation"
	service "github.com/okian/fraudscope/internal/app"
	"github.com/okian/fraudscope/internal/config"
	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/internal/domain/scoring"
	"github.com/okian/fraudscope/pkg/logger"
)

const storeOpenTimeout = 10 * time.Second

// closer is everything the wiring opened that the pipeline does not own.
type closer func() error

// buildStore opens the configured persistent store.
func buildStore(ctx context.Context, cfg *config.Config, lg logger.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		return repository.NewMemoryStore(repository.WithShardCount(cfg.ShardCount)), nil
	default:
		openCtx, cancel := context.WithTimeout(ctx, storeOpenTimeout)
		defer cancel()
		return repository.NewSQLStore(openCtx, cfg.StoreDriver, cfg.StoreDSN, repository.WithLogger(lg))
	}
}

// buildReputation assembles the weighted reputation sources. The returned
// closer releases the Redis connection, if any.
func buildReputation(ctx context.Context, cfg *config.Config) ([]scoring.WeightedSource, closer, error) {
	var (
		sources []scoring.WeightedSource
		release closer = func() error { return nil }
	)

	if ir := cfg.InternalReputation; ir.Enabled && ir.Weight > 0 {
		var store reputation.Store = reputation.NewMemoryStore()
		if ir.RedisAddr != "" {
			rs, err := reputation.NewRedisStore(ctx, reputation.RedisConfig{
				Addr:     ir.RedisAddr,
				Password: ir.RedisPassword,
				DB:       ir.RedisDB,
			})
			if err != nil {
				return nil, nil, err
			}
			store, release = rs, rs.Close
		}
		sources = append(sources, scoring.WeightedSource{
			Source: reputation.NewInternalSource(store),
			Weight: ir.Weight,
		})
	}

	for _, rc := range cfg.ReputationSources {
		timeout := time.Duration(rc.TimeoutMS) * time.Millisecond
		src, err := reputation.NewHTTPSource(reputation.HTTPConfig{
			Name:       rc.Name,
			URL:        rc.URL,
			APIKey:     rc.APIKey,
			Timeout:    timeout,
			ScoreScale: rc.ScoreScale,
		})
		if err != nil {
			_ = release()
			return nil, nil, err
		}
		sources = append(sources, scoring.WeightedSource{Source: src, Weight: rc.Weight, Timeout: timeout})
	}
	return sources, release, nil
}

// buildPaymentSources returns the processors reconciliation polls.
func buildPaymentSources(cfg *config.Config) ([]payment.Source, error) {
	if cfg.StripeAPIKey == "" {
		return nil, nil
	}
	src, err := payment.NewStripeSource(cfg.StripeAPIKey)
	if err != nil {
		return nil, err
	}
	return []payment.Source{src}, nil
}

// buildServerOptions enables the optional API routes cfg asks for.
func buildServerOptions(cfg *config.Config) ([]api.ServerOption, error) {
	if cfg.StripeWebhookSecret == "" {
		return nil, nil
	}
	hook, err := payment.NewStripeWebhook(cfg.StripeWebhookSecret)
	if err != nil {
		return nil, err
	}
	return []api.ServerOption{api.WithStripeWebhook(hook)}, nil
}

// buildSinks returns the alert sinks. The log sink is always present.
func buildSinks(cfg *config.Config, lg logger.Logger) ([]notify.Sink, error) {
	sinks := []notify.Sink{notify.NewLogSink(lg)}
	if cfg.AlertWebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.AlertWebhookURL, cfg.AlertWebhookTimeout()))
	}
	if cfg.SMTPAddr != "" && len(cfg.AlertEmailTo) > 0 {
		es, err := notify.NewEmailSink(notify.EmailConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.AlertEmailFrom,
			To:       cfg.AlertEmailTo,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, es)
	}
	return sinks, nil
}

func thresholdsFrom(cfg *config.Config) scoring.Thresholds {
	return scoring.Thresholds{Low: cfg.LowRiskThreshold, High: cfg.HighRiskThreshold}
}

// buildService wires a pipeline from cfg. The returned closer releases
// resources the service does not own; call it after Stop.
func buildService(ctx context.Context, cfg *config.Config, lg logger.Logger) (*service.Service, closer, error) {
	store, err := buildStore(ctx, cfg, lg)
	if err != nil {
		return nil, nil, fmt.Errorf("store: %w", err)
	}
	sources, release, err := buildReputation(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("reputation: %w", err)
	}
	payments, err := buildPaymentSources(cfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, errors.Join(fmt.Errorf("payment: %w", err), release())
	}
	sinks, err := buildSinks(cfg, lg)
	if err != nil {
		_ = store.Close()
		return nil, nil, errors.Join(fmt.Errorf("notify: %w", err), release())
	}

	svc := service.New(
		service.WithLogger(lg),
		service.WithStore(store),
		service.WithModelPath(cfg.ModelPath),
		service.WithClassifierMode(model.ClassifierMode(cfg.ClassifierMode)),
		service.WithThresholds(thresholdsFrom(cfg)),
		service.WithReputationSources(sources...),
		service.WithPaymentSources(payments...),
		service.WithSinks(sinks...),
		service.WithScoringWorkers(cfg.ScoringWorkers),
		service.WithAlertWorkers(cfg.AlertWorkers),
		service.WithBatchSize(cfg.BatchSize),
		service.WithPollInterval(cfg.PollInterval()),
		service.WithStatsInterval(cfg.StatsInterval()),
		service.WithReconcile(cfg.ReconcileInterval(), cfg.ReconcileLookback(), cfg.ReconcileLimit, cfg.ReconcileWindow),
		service.WithEnrichmentWindows(cfg.HistoryWindow, cfg.VelocityWindow),
		service.WithDedupeSize(cfg.DedupeSize),
	)
	return svc, release, nil
}
