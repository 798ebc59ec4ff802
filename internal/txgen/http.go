package txgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fraudscope/pkg/logger"
)

const progressInterval = time.Second

// HTTPClient wraps http.Client with context-aware JSON helpers.
type HTTPClient struct {
	base   string
	client *http.Client
}

// NewHTTPClient creates a client for the service at base.
func NewHTTPClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{base: base, client: &http.Client{Timeout: timeout}}
}

// getJSON decodes the body of a 200 GET into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// submit posts one transaction and reports accepted, duplicate or failed.
func (c *HTTPClient) submit(ctx context.Context, tx Transaction) (string, error) { //nolint:gocritic // value semantics
	body, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/transactions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		var ack SubmitResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return "", fmt.Errorf("decode ack: %w", err)
		}
		return ack.Status, nil
	default:
		return "", fmt.Errorf("POST /transactions: %s", resp.Status)
	}
}

// Submit posts every transaction with cfg.Workers concurrent requests and
// fills the submission counters of stats.
func Submit(ctx context.Context, cfg *Config, client *HTTPClient, txs []Transaction, stats *Stats) error {
	lg := logger.Get()
	lg.Info(ctx, "submitting transactions", logger.Int("count", len(txs)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, failed atomic.Int64
	var lastReport atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, tx := range txs {
		tx := tx
		g.Go(func() error {
			status, err := client.submit(gctx, tx)
			submitted.Add(1)
			switch {
			case err != nil:
				failed.Add(1)
				if cfg.Verbose {
					lg.Warn(gctx, "submission failed", logger.String("transaction_id", tx.TransactionID), logger.Error(err))
				}
			case status == "duplicate":
				duplicate.Add(1)
			default:
				accepted.Add(1)
			}

			now := time.Now().UnixNano()
			last := lastReport.Load()
			if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
				lg.Info(gctx, "progress",
					logger.Int64("submitted", submitted.Load()),
					logger.Int("total", len(txs)),
					logger.Int64("failed", failed.Load()))
			}
			return gctx.Err()
		})
	}
	err := g.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())
	lg.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))
	return err
}
