package enrichment

import "time"

// Option configures the Engine.
type Option func(*Engine)

// WithHistoryWindow sets how many recent records feed the user aggregates.
func WithHistoryWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyWindow = n
		}
	}
}

// WithVelocityWindow sets how many recent records feed the velocity metrics.
func WithVelocityWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.velocityWindow = n
		}
	}
}

// WithClock overrides the processing-time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}
