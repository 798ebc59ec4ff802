package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const testSigningSecret = "whsec_test"

// signStripe builds a Stripe-Signature header for payload.
func signStripe(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

const chargeSucceeded = `{
  "id": "evt_1",
  "object": "event",
  "api_version": "2020-08-27",
  "type": "charge.succeeded",
  "data": {"object": {
    "id": "ch_hook",
    "object": "charge",
    "amount": 420000,
    "currency": "usd",
    "created": 1710590400,
    "description": "electronics",
    "receipt_email": "buyer@example.com",
    "metadata": {"ip_address": "10.0.0.9"},
    "billing_details": {"address": {"country": "US"}},
    "payment_method_details": {"card": {"country": "NG", "funding": "prepaid"}}
  }}
}`

func TestStripeWebhook(t *testing.T) {
	now := time.Now()

	Convey("Given a webhook verifier", t, func() {
		hook, err := NewStripeWebhook(testSigningSecret)
		So(err, ShouldBeNil)

		Convey("When a signed charge.succeeded arrives", func() {
			payload := []byte(chargeSucceeded)
			ev, handled, err := hook.Parse(payload, signStripe(payload, testSigningSecret, now))

			Convey("Then it becomes a transaction event", func() {
				So(err, ShouldBeNil)
				So(handled, ShouldBeTrue)
				So(ev.ID, ShouldEqual, "ch_hook")
				So(ev.UserID, ShouldEqual, guestUserID)
				So(ev.Amount, ShouldEqual, 4200)
				So(ev.Merchant, ShouldEqual, "electronics")
				So(ev.Payment.Processor, ShouldEqual, stripeProcessor)
				So(ev.Payment.IPAddress, ShouldEqual, "10.0.0.9")
				So(ev.Payment.CardCountry, ShouldEqual, "NG")
			})
		})

		Convey("When the signature was made with another secret", func() {
			payload := []byte(chargeSucceeded)
			_, handled, err := hook.Parse(payload, signStripe(payload, "whsec_other", now))

			Convey("Then the delivery is rejected", func() {
				So(handled, ShouldBeFalse)
				So(errors.Is(err, ErrInvalidSignature), ShouldBeTrue)
			})
		})

		Convey("When the signature is stale", func() {
			payload := []byte(chargeSucceeded)
			_, _, err := hook.Parse(payload, signStripe(payload, testSigningSecret, now.Add(-time.Hour)))
			So(errors.Is(err, ErrInvalidSignature), ShouldBeTrue)
		})

		Convey("When another event type arrives", func() {
			payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
			_, handled, err := hook.Parse(payload, signStripe(payload, testSigningSecret, now))

			Convey("Then it is ignored without error", func() {
				So(err, ShouldBeNil)
				So(handled, ShouldBeFalse)
			})
		})
	})

	Convey("Given no signing secret", t, func() {
		_, err := NewStripeWebhook("")
		So(err, ShouldNotBeNil)
	})
}
