package worker

import (
	"time"

	"github.com/okian/fraudscope/pkg/logger"
)

type config struct {
	name         string
	batchSize    int
	pollInterval time.Duration
	logger       logger.Logger
}

func defaultConfig() config {
	return config{
		name:         "worker",
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
}

// Option applies a configuration option to a worker or pool.
type Option func(*config)

// WithName sets the worker (or pool) name for identification, logging and metrics.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithBatchSize sets how many items a worker pulls per iteration.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithPollInterval sets how long an idle worker waits before polling again.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
