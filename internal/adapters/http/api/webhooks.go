package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/okian/fraudscope/internal/adapters/payment"
	service "github.com/okian/fraudscope/internal/app"
)

// maxWebhookBytes caps an inbound delivery body.
const maxWebhookBytes = 64 << 10

// WebhookHandler feeds verified payment-processor events into the pipeline.
type WebhookHandler struct {
	deps   Dependencies
	parser WebhookParser
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(deps Dependencies, parser WebhookParser) *WebhookHandler {
	return &WebhookHandler{deps: deps, parser: parser}
}

type webhookResponse struct {
	Received      bool   `json:"received"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status"`
}

// HandleStripe handles POST /webhooks/stripe requests.
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook_stripe"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, handled, err := h.parser.Parse(body, r.Header.Get(payment.StripeSignatureHeader))
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid_signature", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case !handled:
		writeJSON(w, http.StatusOK, webhookResponse{Received: true, Status: "ignored"})
		return
	}

	id, status, err := h.deps.Submit(r.Context(), ev)
	if err != nil {
		writeUpstreamError(w, op, err)
		return
	}
	code := http.StatusAccepted
	if status == service.StatusDuplicate {
		code = http.StatusOK
	}
	writeJSON(w, code, webhookResponse{Received: true, TransactionID: id, Status: string(status)})
}
