// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fraudscope/internal/adapters/payment"
	"github.com/okian/fraudscope/internal/adapters/repository"
	service "github.com/okian/fraudscope/internal/app"
	"github.com/okian/fraudscope/internal/domain/model"
)

// DefaultMaxListLimit caps GET /transactions?limit=N.
const DefaultMaxListLimit = 1000

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the pipeline implementation.
type Dependencies interface {
	// Submit hands a transaction to the ingestion queue.
	Submit(ctx context.Context, ev model.TransactionEvent) (string, service.SubmitStatus, error)
	Running() bool
	Statistics() model.ProcessorStatistics

	// Read operations expose persisted verdicts and alerts.
	RecentTransactions(ctx context.Context, limit int) ([]model.TransactionRecord, error)
	OpenAlerts(ctx context.Context) ([]model.OpenAlert, error)
	ResolveAlert(ctx context.Context, id int64) error
	StoreStatistics(ctx context.Context) (model.StoreStatistics, error)

	// Reconcile runs one catch-up pass against the payment sources.
	Reconcile(ctx context.Context) (int, error)
}

// WebhookParser verifies an inbound payment-processor delivery and maps
// it onto a transaction. handled is false for events that carry none.
type WebhookParser interface {
	Parse(payload []byte, signature string) (ev model.TransactionEvent, handled bool, err error)
}

// ServerOption configures optional routes.
type ServerOption func(*Server)

// WithStripeWebhook enables POST /webhooks/stripe.
func WithStripeWebhook(p WebhookParser) ServerOption {
	return func(s *Server) {
		if p != nil {
			s.webhookHandler = NewWebhookHandler(s.deps, p)
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps Dependencies

	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	transactionsHandler *TransactionsHandler
	alertsHandler       *AlertsHandler
	reconcileHandler    *ReconcileHandler
	webhookHandler      *WebhookHandler
}

// NewServer creates a new API server with all handlers. maxLimit < 1
// selects DefaultMaxListLimit.
func NewServer(deps Dependencies, maxLimit int, opts ...ServerOption) *Server {
	if maxLimit < 1 {
		maxLimit = DefaultMaxListLimit
	}
	s := &Server{
		deps:                deps,
		healthHandler:       NewHealthHandler(deps),
		statsHandler:        NewStatsHandler(deps),
		transactionsHandler: NewTransactionsHandler(deps, maxLimit),
		alertsHandler:       NewAlertsHandler(deps),
		reconcileHandler:    NewReconcileHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/transactions", MetricsMiddleware(s.transactionsHandler.HandleTransactions, "transactions"))
	mux.HandleFunc("/alerts", MetricsMiddleware(s.alertsHandler.HandleListAlerts, "alerts"))
	mux.HandleFunc("/alerts/", MetricsMiddleware(s.alertsHandler.HandleResolveAlert, "alerts_resolve"))
	mux.HandleFunc("/reconcile", MetricsMiddleware(s.reconcileHandler.HandleReconcile, "reconcile"))
	if s.webhookHandler != nil {
		mux.HandleFunc("/webhooks/stripe", MetricsMiddleware(s.webhookHandler.HandleStripe, "webhooks_stripe"))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	if rw, ok := w.(*responseWriter); ok {
		rw.errorCode = code
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeUpstreamError maps pipeline errors onto HTTP status codes.
func writeUpstreamError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrAlertNotFound), errors.Is(err, repository.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotRunning), errors.Is(err, service.ErrQueueClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, repository.ErrInvalidLimit), errors.Is(err, model.ErrMalformedEvent):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNoPaymentSource):
		writeError(w, http.StatusConflict, "reconcile_disabled", WrapKind(op, ErrConflict, err))
	case errors.Is(err, payment.ErrSourceFailed):
		writeError(w, http.StatusBadGateway, "upstream_failed", WrapKind(op, ErrUpstream, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
