package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/fraudscope/internal/domain/model"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	maxResponseBytes   = 1 << 20
)

// HTTPConfig describes an external provider.
type HTTPConfig struct {
	Name    string
	URL     string
	APIKey  string
	Timeout time.Duration
	// ScoreScale divides the provider's risk_score, e.g. 100 for 0-100 providers.
	ScoreScale float64
}

// HTTPSource asks an external provider for a risk score.
//
// The provider receives a JSON description of the transaction and answers
// {"risk_score": n, "risk_factors": [...]}.
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
}

type httpRequest struct {
	TransactionID  string  `json:"transaction_id"`
	UserID         string  `json:"user_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency,omitempty"`
	Merchant       string  `json:"merchant,omitempty"`
	IPAddress      string  `json:"ip_address,omitempty"`
	Email          string  `json:"email,omitempty"`
	BillingCountry string  `json:"billing_country,omitempty"`
	CardCountry    string  `json:"card_country,omitempty"`
}

type httpResponse struct {
	RiskScore   float64  `json:"risk_score"`
	RiskFactors []string `json:"risk_factors"`
}

// NewHTTPSource validates cfg and builds the source.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if cfg.Name == "" || !strings.HasPrefix(cfg.URL, "http") {
		return nil, fmt.Errorf("%w: name=%q url=%q", ErrInvalidSource, cfg.Name, cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.ScoreScale <= 0 {
		cfg.ScoreScale = 1
	}
	return &HTTPSource{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Name returns the configured provider name.
func (s *HTTPSource) Name() string { return s.cfg.Name }

// Score posts the transaction to the provider and rescales its answer
// into [0, 1].
func (s *HTTPSource) Score(ctx context.Context, ev model.TransactionEvent) (model.Reputation, error) { //nolint:gocritic // value semantics
	body := httpRequest{
		TransactionID: ev.ID,
		UserID:        ev.UserID,
		Amount:        ev.Amount,
		Merchant:      ev.Merchant,
		IPAddress:     ev.IPAddress(),
		Email:         ev.Email(),
	}
	if p := ev.Payment; p != nil {
		body.Currency = p.Currency
		body.BillingCountry = p.BillingCountry
		body.CardCountry = p.CardCountry
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return model.Reputation{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return model.Reputation{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return model.Reputation{}, fmt.Errorf("%w: %s: %w", ErrSourceFailed, s.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return model.Reputation{}, fmt.Errorf("%w: %w: %s answered %d", ErrSourceFailed, ErrUnexpectedStatus, s.cfg.Name, resp.StatusCode)
	}

	var out httpResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return model.Reputation{}, fmt.Errorf("%w: decode %s response: %w", ErrSourceFailed, s.cfg.Name, err)
	}
	return model.Reputation{RiskScore: out.RiskScore / s.cfg.ScoreScale, Tags: out.RiskFactors}, nil
}
