// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers a YAML file and FRAUDSCOPE_* environment variables on top.
// - Validate wraps every violation in ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ScoringWorkers and AlertWorkers size the two worker pools.
	ScoringWorkers int `koanf:"scoring_workers"`
	AlertWorkers   int `koanf:"alert_workers"`

	// BatchSize is how many items a worker pulls per iteration.
	BatchSize int `koanf:"batch_size"`

	// PollIntervalMS is the idle back-off of a worker.
	PollIntervalMS int `koanf:"poll_interval_ms"`

	// StatsIntervalMS is the telemetry period.
	StatsIntervalMS int `koanf:"stats_interval_ms"`

	// Reconciliation against the payment processors.
	ReconcileIntervalMS      int `koanf:"reconcile_interval_ms"`
	ReconcileLimit           int `koanf:"reconcile_limit"`
	ReconcileLookbackMinutes int `koanf:"reconcile_lookback_minutes"`
	ReconcileWindow          int `koanf:"reconcile_window"`

	// HistoryWindow and VelocityWindow bound the enrichment scans.
	HistoryWindow  int `koanf:"history_window"`
	VelocityWindow int `koanf:"velocity_window"`

	// Risk thresholds; both can be hot-reloaded.
	LowRiskThreshold  float64 `koanf:"low_risk_threshold"`
	HighRiskThreshold float64 `koanf:"high_risk_threshold"`

	// ClassifierMode is linear, forest or ensemble.
	ClassifierMode string `koanf:"classifier_mode"`
	// ModelPath points at a JSON model bundle; empty uses the embedded one.
	ModelPath string `koanf:"model_path"`

	// StoreDriver is memory, sqlite3 or postgres.
	StoreDriver string `koanf:"store_driver"`
	StoreDSN    string `koanf:"store_dsn"`

	// ShardCount configures the number of shards of the memory store.
	ShardCount int `koanf:"shard_count"`

	// DedupeSize sets the size of the in-flight deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxListLimit caps GET /transactions?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	ReputationSources  []ReputationSource  `koanf:"reputation_sources"`
	InternalReputation InternalReputation `koanf:"internal_reputation"`

	// StripeAPIKey enables reconciliation against Stripe.
	StripeAPIKey string `koanf:"stripe_api_key"`
	// StripeWebhookSecret enables POST /webhooks/stripe.
	StripeWebhookSecret string `koanf:"stripe_webhook_secret"`

	// Alert sinks. Empty values disable the sink.
	AlertWebhookURL       string   `koanf:"alert_webhook_url"`
	AlertWebhookTimeoutMS int      `koanf:"alert_webhook_timeout_ms"`
	SMTPAddr              string   `koanf:"smtp_addr"`
	SMTPUsername          string   `koanf:"smtp_username"`
	SMTPPassword          string   `koanf:"smtp_password"`
	AlertEmailFrom        string   `koanf:"alert_email_from"`
	AlertEmailTo          []string `koanf:"alert_email_to"`

	// OTLPEndpoint enables trace export, e.g. "localhost:4318".
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	ServiceName  string `koanf:"service_name"`
}

// ReputationSource is an external HTTP reputation provider.
type ReputationSource struct {
	Name       string  `koanf:"name"`
	URL        string  `koanf:"url"`
	APIKey     string  `koanf:"api_key"`
	Weight     float64 `koanf:"weight"`
	TimeoutMS  int     `koanf:"timeout_ms"`
	ScoreScale float64 `koanf:"score_scale"`
}

// InternalReputation configures the internal IP/e-mail reputation source.
// An empty RedisAddr keeps the data in memory.
type InternalReputation struct {
	Enabled       bool    `koanf:"enabled"`
	Weight        float64 `koanf:"weight"`
	RedisAddr     string  `koanf:"redis_addr"`
	RedisDB       int     `koanf:"redis_db"`
	RedisPassword string  `koanf:"redis_password"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		ScoringWorkers:           runtime.NumCPU(),
		AlertWorkers:             2,
		BatchSize:                10,
		PollIntervalMS:           1000,
		StatsIntervalMS:          60_000,
		ReconcileIntervalMS:      300_000,
		ReconcileLimit:           50,
		ReconcileLookbackMinutes: 60,
		ReconcileWindow:          1000,
		HistoryWindow:            100,
		VelocityWindow:           1000,
		LowRiskThreshold:         0.3,
		HighRiskThreshold:        0.7,
		ClassifierMode:           "ensemble",
		StoreDriver:              "memory",
		ShardCount:               16,
		DedupeSize:               50_000,
		MaxListLimit:             100,
		InternalReputation: InternalReputation{
			Enabled: true,
			Weight:  0.3,
		},
		AlertWebhookTimeoutMS: 5000,
		ServiceName:           "fraudscope",
	}
}

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration { return ms(c.PollIntervalMS) }

// StatsInterval returns StatsIntervalMS as a duration.
func (c *Config) StatsInterval() time.Duration { return ms(c.StatsIntervalMS) }

// ReconcileInterval returns ReconcileIntervalMS as a duration.
func (c *Config) ReconcileInterval() time.Duration { return ms(c.ReconcileIntervalMS) }

// ReconcileLookback returns ReconcileLookbackMinutes as a duration.
func (c *Config) ReconcileLookback() time.Duration {
	return time.Duration(c.ReconcileLookbackMinutes) * time.Minute
}

// AlertWebhookTimeout returns AlertWebhookTimeoutMS as a duration.
func (c *Config) AlertWebhookTimeout() time.Duration { return ms(c.AlertWebhookTimeoutMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
