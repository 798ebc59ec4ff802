package payment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/okian/fraudscope/internal/domain/model"
)

// StripeSignatureHeader carries the signature of a Stripe delivery.
const StripeSignatureHeader = "Stripe-Signature"

const eventChargeSucceeded = "charge.succeeded"

// StripeWebhook verifies Stripe event deliveries and turns successful
// charges into transaction events.
type StripeWebhook struct {
	secret string
	clock  func() time.Time
}

// NewStripeWebhook creates a verifier for the endpoint signing secret.
func NewStripeWebhook(secret string, opts ...StripeOption) (*StripeWebhook, error) {
	if secret == "" {
		return nil, fmt.Errorf("stripe webhook: empty signing secret")
	}
	st := stripeSettings{clock: time.Now}
	for _, opt := range opts {
		opt(&st)
	}
	return &StripeWebhook{secret: secret, clock: st.clock}, nil
}

// Parse verifies payload against the signature header. handled is false
// for event types other than charge.succeeded.
func (w *StripeWebhook) Parse(payload []byte, signature string) (ev model.TransactionEvent, handled bool, err error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, w.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return model.TransactionEvent{}, false, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if string(event.Type) != eventChargeSucceeded {
		return model.TransactionEvent{}, false, nil
	}
	if event.Data == nil {
		return model.TransactionEvent{}, false, fmt.Errorf("%w: %s without data", ErrInvalidPayload, event.ID)
	}

	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return model.TransactionEvent{}, false, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, event.ID, err)
	}
	if ch.ID == "" {
		return model.TransactionEvent{}, false, fmt.Errorf("%w: %s: charge without id", ErrInvalidPayload, event.ID)
	}
	return chargeToEvent(&ch, w.clock()), true, nil
}
