package txgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/fraudscope/pkg/logger"
)

// ErrLiveness is returned when the pipeline did not process exactly the
// accepted transactions within the wait budget.
var ErrLiveness = errors.New("liveness check failed")

func (c *HTTPClient) processed(ctx context.Context) (processorStats, error) {
	var st processorStats
	err := c.getJSON(ctx, "/stats", &st)
	return st, err
}

// VerifyProcessed polls /stats until the processed counter moved by exactly
// want from baseline and the ingestion queue is empty. Overshoot fails
// immediately; running out of wait fails with the last observed delta.
func VerifyProcessed(ctx context.Context, cfg *Config, client *HTTPClient, baseline int64, want int, stats *Stats) error {
	lg := logger.Get()
	deadline := time.Now().Add(cfg.Wait)
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var delta int64
	for {
		st, err := client.processed(ctx)
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}
		delta = st.Processor.Processed - baseline
		stats.Processed = delta
		stats.FraudDetected = st.Processor.Fraud

		switch {
		case delta > int64(want):
			return fmt.Errorf("%w: processed %d, accepted %d", ErrLiveness, delta, want)
		case delta == int64(want) && st.Processor.Queue == 0:
			lg.Info(ctx, "all accepted transactions processed", logger.Int64("processed", delta))
			return nil
		}
		if cfg.Verbose {
			lg.Info(ctx, "waiting for pipeline", logger.Int64("processed", delta), logger.Int("want", want), logger.Int("queue", st.Processor.Queue))
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: processed %d of %d after %s", ErrLiveness, delta, want, cfg.Wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// VerifyPersisted reads the n most recent records and checks that each
// belongs to this run. It assumes no other producer ran concurrently.
func VerifyPersisted(ctx context.Context, client *HTTPClient, ours map[string]struct{}, n int) error {
	if n < 1 {
		return nil
	}
	var recent []struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := client.getJSON(ctx, fmt.Sprintf("/transactions?limit=%d", n), &recent); err != nil {
		return fmt.Errorf("read transactions: %w", err)
	}
	if len(recent) < n {
		return fmt.Errorf("%w: %d recent records, want %d", ErrLiveness, len(recent), n)
	}
	for _, r := range recent {
		if _, ok := ours[r.TransactionID]; !ok {
			return fmt.Errorf("%w: unexpected recent transaction %s", ErrLiveness, r.TransactionID)
		}
	}
	return nil
}
