package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/fraudscope/internal/domain/model"
)

// DefaultWebhookTimeout bounds one webhook delivery.
const DefaultWebhookTimeout = 5 * time.Second

// WebhookSink POSTs the alert as JSON.
type WebhookSink struct {
	url    string
	client *http.Client
}

type webhookBody struct {
	model.AlertPayload
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

// NewWebhookSink posts alerts as JSON to url. A timeout <= 0 selects the
// package default.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &WebhookSink{url: url, client: &http.Client{Timeout: timeout}}
}

// Name returns "webhook".
func (s *WebhookSink) Name() string { return "webhook" }

// Notify fails on transport errors and non-2xx answers.
func (s *WebhookSink) Notify(ctx context.Context, alert model.AlertPayload) error { //nolint:gocritic // value semantics
	raw, err := json.Marshal(webhookBody{
		AlertPayload: alert,
		AlertType:    model.AlertTypeHighRisk,
		Severity:     model.SeverityCritical,
		Message:      alert.Message(),
	})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: webhook answered %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
