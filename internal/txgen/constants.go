package txgen

import "time"

// Defaults applied by Normalize.
const (
	DefaultTransactions = 1000
	DefaultUsers        = 200
	DefaultFraudRatio   = 0.05
	DefaultTimeout      = 10 * time.Second
	DefaultWait         = 2 * time.Minute
	DefaultPollInterval = 500 * time.Millisecond

	percentageMultiplier = 100
)
