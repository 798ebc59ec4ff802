package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/fraudscope/internal/app"
	"github.com/okian/fraudscope/internal/domain/model"
)

const defaultListLimit = 50

// TransactionsHandler handles manual submission and recent-verdict reads.
type TransactionsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(deps Dependencies, maxLimit int) *TransactionsHandler {
	return &TransactionsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleTransactions dispatches on method.
func (h *TransactionsHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.HandlePostTransaction(w, r)
	case http.MethodGet:
		h.HandleListTransactions(w, r)
	default:
		http.NotFound(w, r)
	}
}

// HandlePostTransaction handles POST /transactions requests.
func (h *TransactionsHandler) HandlePostTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_transaction"
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, status, err := h.deps.Submit(r.Context(), req.event())
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	if status == service.StatusDuplicate {
		writeJSON(w, http.StatusOK, submitResponse{TransactionID: id, Status: string(status), Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{TransactionID: id, Status: string(status)})
}

// HandleListTransactions handles GET /transactions?limit=N requests.
func (h *TransactionsHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_transactions"
	n := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	records, err := h.deps.RecentTransactions(r.Context(), n)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	if records == nil {
		records = []model.TransactionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// transactionRequest is the body of POST /transactions.
type transactionRequest struct {
	TransactionID string                 `json:"transaction_id"`
	UserID        string                 `json:"user_id"`
	Amount        float64                `json:"amount"`
	Merchant      string                 `json:"merchant"`
	Payment       *model.PaymentMetadata `json:"payment"`
}

func (t transactionRequest) validate() error {
	switch {
	case strings.TrimSpace(t.UserID) == "":
		return errors.New("missing user_id")
	case math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount <= 0:
		return errors.New("amount must be a positive number")
	}
	return nil
}

func (t transactionRequest) event() model.TransactionEvent {
	return model.TransactionEvent{
		ID:       strings.TrimSpace(t.TransactionID),
		UserID:   strings.TrimSpace(t.UserID),
		Amount:   t.Amount,
		Merchant: t.Merchant,
		Payment:  t.Payment,
	}
}

type submitResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Duplicate     bool   `json:"duplicate"`
}
