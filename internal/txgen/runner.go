// Package txgen generates synthetic payment traffic against a running
// instance and verifies that the pipeline processes every accepted
// transaction exactly once.
package txgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/fraudscope/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
	maxVerifySample     = 100
)

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.Transactions < 1 {
		c.Transactions = DefaultTransactions
	}
	if c.Users < 1 {
		c.Users = DefaultUsers
	}
	if c.FraudRatio < 0 || c.FraudRatio > 1 {
		c.FraudRatio = DefaultFraudRatio
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Wait <= 0 {
		c.Wait = DefaultWait
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Run executes a complete load and liveness run.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.Normalize()
	stats := &Stats{StartTime: time.Now()}
	lg := logger.Get()

	lg.Info(ctx, "starting fraudscope load run",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("transactions", cfg.Transactions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Duration("wait", cfg.Wait))

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Baseline so the run works against a warm instance
	before, err := client.processed(ctx)
	if err != nil {
		return stats, fmt.Errorf("read baseline stats: %w", err)
	}

	// Step 3: Generate
	txs, err := Generate(ctx, cfg)
	if err != nil {
		return stats, err
	}
	stats.Generated = len(txs)

	// Step 4: Submit concurrently
	if err := Submit(ctx, cfg, client, txs, stats); err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}

	// Step 5: Wait for the pipeline and verify
	if err := VerifyProcessed(ctx, cfg, client, before.Processor.Processed, stats.Accepted, stats); err != nil {
		return stats, err
	}
	ours := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		ours[tx.TransactionID] = struct{}{}
	}
	if err := VerifyPersisted(ctx, client, ours, min(stats.Accepted, maxVerifySample)); err != nil {
		return stats, err
	}

	// Step 6: Save transactions
	if cfg.OutputFile != "" {
		if err := saveTransactions(cfg.OutputFile, txs); err != nil {
			lg.Warn(ctx, "failed to save transactions", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// saveTransactions writes txs as a JSON array.
func saveTransactions(filename string, txs []Transaction) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transactions: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int64("processed", stats.Processed),
		logger.Int64("fraud_detected_total", stats.FraudDetected),
		logger.Duration("duration", stats.Duration),
		logger.Float64("success_rate", successRate),
		logger.Float64("transactions_per_second", perSecond))
}
