package repository

import (
	"time"

	"github.com/okian/fraudscope/pkg/logger"
)

type options struct {
	shardCount      int
	clock           func() time.Time
	logger          logger.Logger
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

func defaultOptions() options {
	return options{
		shardCount:      defaultShardCount,
		clock:           time.Now,
		maxOpenConns:    25,
		maxIdleConns:    5,
		connMaxLifetime: 5 * time.Minute,
	}
}

// Option configures a store.
type Option func(*options)

// WithShardCount sets the number of shards of the memory store.
func WithShardCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shardCount = n
		}
	}
}

// WithClock overrides the time source used for alert timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConnPool tunes the postgres connection pool.
func WithConnPool(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(o *options) {
		if maxOpen > 0 {
			o.maxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			o.maxIdleConns = maxIdle
		}
		if maxLifetime > 0 {
			o.connMaxLifetime = maxLifetime
		}
	}
}
