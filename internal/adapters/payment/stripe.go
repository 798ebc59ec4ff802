package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/okian/fraudscope/internal/domain/classifier"
	"github.com/okian/fraudscope/internal/domain/model"
)

const (
	stripeProcessor = "stripe"
	guestUserID     = "stripe_guest"
	maxStripePage   = 100
)

// StripeSource lists charges through the Stripe API.
type StripeSource struct {
	api   *client.API
	clock func() time.Time
}

var _ Source = (*StripeSource)(nil)

// StripeOption configures a StripeSource.
type StripeOption func(*stripeSettings)

type stripeSettings struct {
	backendURL string
	clock      func() time.Time
}

// WithStripeBackendURL points the client at another API host.
func WithStripeBackendURL(url string) StripeOption {
	return func(s *stripeSettings) { s.backendURL = url }
}

// WithStripeClock overrides the clock used for account age.
func WithStripeClock(clock func() time.Time) StripeOption {
	return func(s *stripeSettings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStripeSource creates a source authenticated with the secret key.
func NewStripeSource(apiKey string, opts ...StripeOption) (*StripeSource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stripe: empty api key")
	}
	st := stripeSettings{clock: time.Now}
	for _, opt := range opts {
		opt(&st)
	}

	var backends *stripe.Backends
	if st.backendURL != "" {
		backends = &stripe.Backends{
			API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
				URL:               stripe.String(st.backendURL),
				MaxNetworkRetries: stripe.Int64(0),
			}),
		}
	}
	api := &client.API{}
	api.Init(apiKey, backends)
	return &StripeSource{api: api, clock: st.clock}, nil
}

// Name returns "stripe".
func (s *StripeSource) Name() string { return stripeProcessor }

// ListRecent pages through charges created at or after since.
func (s *StripeSource) ListRecent(ctx context.Context, since time.Time, limit int) ([]model.TransactionEvent, error) {
	page := int64(maxStripePage)
	if limit > 0 && limit < maxStripePage {
		page = int64(limit)
	}
	params := &stripe.ChargeListParams{
		CreatedRange: &stripe.RangeQueryParams{GreaterThanOrEqual: since.Unix()},
	}
	params.Context = ctx
	params.Limit = stripe.Int64(page)
	params.AddExpand("data.customer")

	var out []model.TransactionEvent
	it := s.api.Charges.List(params)
	for it.Next() {
		out = append(out, s.fromCharge(it.Charge()))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return out, fmt.Errorf("%w: list stripe charges: %w", ErrSourceFailed, err)
	}
	return out, nil
}

func (s *StripeSource) fromCharge(ch *stripe.Charge) model.TransactionEvent {
	return chargeToEvent(ch, s.clock())
}

// chargeToEvent maps a charge onto a transaction event. Amounts arrive in
// the currency's minor unit.
func chargeToEvent(ch *stripe.Charge, now time.Time) model.TransactionEvent {
	ev := model.TransactionEvent{
		ID:          ch.ID,
		UserID:      guestUserID,
		Amount:      float64(ch.Amount) / 100,
		Merchant:    ch.Metadata["merchant"],
		ArrivalTime: time.Unix(ch.Created, 0),
		Payment: &model.PaymentMetadata{
			Processor: stripeProcessor,
			Currency:  string(ch.Currency),
			IPAddress: ch.Metadata["ip_address"],
			Email:     ch.ReceiptEmail,
		},
	}
	if ev.Merchant == "" {
		ev.Merchant = ch.Description
	}

	if c := ch.Customer; c != nil {
		ev.UserID = c.ID
		if c.Email != "" {
			ev.Payment.Email = c.Email
		}
		if c.Created > 0 {
			age := now.Sub(time.Unix(c.Created, 0)).Hours() / 24
			ev.Payment.Signals = map[string]float64{classifier.FeatureAccountAgeDays: max(age, 0)}
		}
	}
	if b := ch.BillingDetails; b != nil {
		if ev.Payment.Email == "" {
			ev.Payment.Email = b.Email
		}
		if b.Address != nil {
			ev.Payment.BillingCountry = b.Address.Country
		}
	}
	if pm := ch.PaymentMethodDetails; pm != nil && pm.Card != nil {
		ev.Payment.CardCountry = pm.Card.Country
		ev.Payment.CardFunding = string(pm.Card.Funding)
	}
	return ev
}
