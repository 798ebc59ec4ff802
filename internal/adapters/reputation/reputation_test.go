package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fraudscope/internal/domain/model"
)

func event(ip, email string) model.TransactionEvent {
	return model.TransactionEvent{
		ID: "TXN_1", UserID: "u1", Amount: 99,
		Payment: &model.PaymentMetadata{IPAddress: ip, Email: email, Currency: "usd"},
	}
}

func TestEmailHash(t *testing.T) {
	Convey("E-mail hashes ignore case and surrounding space", t, func() {
		So(EmailHash(" Fraud@Example.COM"), ShouldEqual, EmailHash("fraud@example.com"))
		So(EmailHash("fraud@example.com"), ShouldEqual, "7ca578bb67a8fa86d8252fa6879c5426")
	})
}

func TestInternalSource(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	Convey("Given known risky IP and e-mail", t, func() {
		So(store.PutIP(ctx, "10.0.0.1", IPReputation{RiskScore: 0.8, IsProxy: true, IsVPN: true}), ShouldBeNil)
		So(store.PutEmail(ctx, "Burner@Mail.test", EmailReputation{RiskScore: 1, IsDisposable: true}), ShouldBeNil)
		src := NewInternalSource(store)

		Convey("When both match", func() {
			rep, err := src.Score(ctx, event("10.0.0.1", "burner@mail.test"))

			Convey("Then the shares add up and tags are raised", func() {
				So(err, ShouldBeNil)
				So(rep.RiskScore, ShouldAlmostEqual, 0.8*0.5+1*0.3)
				So(rep.Tags, ShouldResemble, []string{TagProxyIP, TagVPNIP, TagDisposableEmail})
			})
		})

		Convey("When nothing matches", func() {
			rep, err := src.Score(ctx, event("192.168.1.1", "someone@else.test"))

			Convey("Then the score is zero", func() {
				So(err, ShouldBeNil)
				So(rep.RiskScore, ShouldEqual, 0)
				So(rep.Tags, ShouldBeEmpty)
			})
		})

		Convey("When the event carries no payment metadata", func() {
			rep, err := src.Score(ctx, model.TransactionEvent{ID: "TXN_2", UserID: "u", Amount: 1})
			So(err, ShouldBeNil)
			So(rep.RiskScore, ShouldEqual, 0)
		})
	})

	Convey("Given an IP whose risk alone exceeds the cap", t, func() {
		s := NewMemoryStore()
		_ = s.PutIP(ctx, "1.1.1.1", IPReputation{RiskScore: 3})
		rep, _ := NewInternalSource(s).Score(ctx, event("1.1.1.1", ""))
		So(rep.RiskScore, ShouldEqual, 1)
	})
}

func TestHTTPSource(t *testing.T) {
	ctx := context.Background()

	Convey("Given a 0-100 provider", t, func() {
		var got httpRequest
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"risk_score": 85, "risk_factors": ["country_mismatch"]}`))
		}))
		defer srv.Close()

		src, err := NewHTTPSource(HTTPConfig{Name: "maxmind", URL: srv.URL, APIKey: "k", ScoreScale: 100})
		So(err, ShouldBeNil)
		rep, err := src.Score(ctx, event("10.0.0.1", "a@b.c"))

		Convey("Then the score is rescaled and the request described the transaction", func() {
			So(err, ShouldBeNil)
			So(rep.RiskScore, ShouldAlmostEqual, 0.85)
			So(rep.Tags, ShouldResemble, []string{"country_mismatch"})
			So(got.TransactionID, ShouldEqual, "TXN_1")
			So(got.IPAddress, ShouldEqual, "10.0.0.1")
			So(auth, ShouldEqual, "Bearer k")
		})
	})

	Convey("Given a failing provider", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		src, _ := NewHTTPSource(HTTPConfig{Name: "sift", URL: srv.URL})
		_, err := src.Score(ctx, event("", ""))

		Convey("Then the call fails", func() {
			So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
			So(errors.Is(err, ErrSourceFailed), ShouldBeTrue)
		})
	})

	Convey("Given a slow provider", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()
		src, _ := NewHTTPSource(HTTPConfig{Name: "slow", URL: srv.URL, Timeout: 20 * time.Millisecond})
		_, err := src.Score(ctx, event("", ""))
		So(errors.Is(err, ErrSourceFailed), ShouldBeTrue)
	})

	Convey("Given an unusable configuration", t, func() {
		_, err := NewHTTPSource(HTTPConfig{Name: "x", URL: "ftp://nope"})
		So(errors.Is(err, ErrInvalidSource), ShouldBeTrue)
	})
}

func TestRedisStoreUnreachable(t *testing.T) {
	Convey("Given no Redis listening", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := NewRedisStore(ctx, RedisConfig{Addr: "127.0.0.1:1"})

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Stored flags parse from either encoding", t, func() {
		So(parseBool("1"), ShouldBeTrue)
		So(parseBool("true"), ShouldBeTrue)
		So(parseBool("0"), ShouldBeFalse)
		So(parseBool(""), ShouldBeFalse)
		So(parseFloat("0.25"), ShouldEqual, 0.25)
		So(parseFloat("junk"), ShouldEqual, 0)
	})
}

type brokenStore struct{ Store }

func (brokenStore) IP(context.Context, string) (IPReputation, bool, error) {
	return IPReputation{}, false, errors.New("connection refused")
}

func TestInternalSourceStoreFailure(t *testing.T) {
	Convey("Given a reputation store that cannot be read", t, func() {
		src := NewInternalSource(brokenStore{Store: NewMemoryStore()})
		_, err := src.Score(context.Background(), event("10.0.0.1", ""))

		Convey("Then the failure is reported as a source failure", func() {
			So(errors.Is(err, ErrSourceFailed), ShouldBeTrue)
		})
	})
}
