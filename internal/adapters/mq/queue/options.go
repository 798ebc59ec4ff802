package queue

type config struct {
	name            string
	initialCapacity int
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*config)

// WithName labels the queue in metrics ("ingestion", "alert").
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithInitialCapacity pre-sizes the backing slice.
func WithInitialCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.initialCapacity = capacity
		}
	}
}
