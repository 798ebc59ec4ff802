package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fraudscope/internal/domain/model"
	"github.com/okian/fraudscope/pkg/logger"
)

func payload() model.AlertPayload {
	return model.AlertPayload{
		TransactionID:       "TXN_9",
		UserID:              "u9",
		Amount:              2500,
		CombinedProbability: 0.8123,
		Tags:                []string{"vpn_ip"},
		Timestamp:           time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookSink(t *testing.T) {
	ctx := context.Background()

	Convey("Given a listening webhook", t, func() {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		err := NewWebhookSink(srv.URL, 0).Notify(ctx, payload())

		Convey("Then the alert is posted as JSON", func() {
			So(err, ShouldBeNil)
			So(got["transaction_id"], ShouldEqual, "TXN_9")
			So(got["severity"], ShouldEqual, model.SeverityCritical)
			So(got["message"], ShouldEqual, "Transaction TXN_9 flagged as high risk (probability: 81.23%)")
		})
	})

	Convey("Given a webhook answering 500", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := NewWebhookSink(srv.URL, time.Second).Notify(ctx, payload())
		So(errors.Is(err, ErrDeliveryFailed), ShouldBeTrue)
	})
}

// fakeRelay speaks just enough SMTP to accept one message.
func fakeRelay(t *testing.T) (addr string, got <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	out := make(chan string, 1)
	go func() {
		defer ln.Close()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 relay.local ESMTP")
		var rcpts []string
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch strings.ToUpper(strings.SplitN(line, " ", 2)[0]) {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250 relay.local")
			case "MAIL":
				_ = tp.PrintfLine("250 ok")
			case "RCPT":
				rcpts = append(rcpts, line)
				_ = tp.PrintfLine("250 ok")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				body, _ := tp.ReadDotBytes()
				_ = tp.PrintfLine("250 queued")
				out <- strings.Join(rcpts, "\n") + "\n" + string(body)
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()
	return ln.Addr().String(), out
}

// stalledRelay accepts connections and never answers.
func stalledRelay(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	conns := make(chan net.Conn, 8)
	t.Cleanup(func() {
		_ = ln.Close()
		for {
			select {
			case c := <-conns:
				_ = c.Close()
			default:
				return
			}
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			select {
			case conns <- conn:
			default:
				_ = conn.Close()
			}
		}
	}()
	return ln.Addr().String()
}

func TestEmailSink(t *testing.T) {
	Convey("Given a working SMTP relay", t, func() {
		addr, got := fakeRelay(t)
		sink, err := NewEmailSink(EmailConfig{Addr: addr, From: "fraud@local", To: []string{"ops@local"}})
		So(err, ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("Then the alert is mailed to every recipient", func() {
			So(sink.Notify(ctx, payload()), ShouldBeNil)
			var msg string
			select {
			case msg = <-got:
			case <-time.After(5 * time.Second):
			}
			So(msg, ShouldContainSubstring, "<ops@local>")
			So(msg, ShouldContainSubstring, "Subject: [Critical] Real-time High Risk Transaction TXN_9")
			So(msg, ShouldContainSubstring, "probability: 81.23%")
			So(msg, ShouldContainSubstring, "Risk factors: vpn_ip")
		})
	})

	Convey("Given a relay that accepts and never answers", t, func() {
		sink, err := NewEmailSink(EmailConfig{Addr: stalledRelay(t), From: "fraud@local", To: []string{"ops@local"}})
		So(err, ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- sink.Notify(ctx, payload()) }()

		Convey("Then Notify gives up when the context expires", func() {
			var err error
			select {
			case err = <-done:
			case <-time.After(3 * time.Second):
				err = errors.New("still blocked")
			}
			So(errors.Is(err, ErrDeliveryFailed), ShouldBeTrue)
		})
	})

	Convey("Given credentials and a relay without AUTH", t, func() {
		addr, _ := fakeRelay(t)
		sink, err := NewEmailSink(EmailConfig{Addr: addr, Username: "u", Password: "p", From: "fraud@local", To: []string{"ops@local"}})
		So(err, ShouldBeNil)
		So(sink.auth, ShouldNotBeNil)

		Convey("Then the mail is refused instead of sent unauthenticated", func() {
			err := sink.Notify(context.Background(), payload())
			So(errors.Is(err, ErrDeliveryFailed), ShouldBeTrue)
			So(errors.Is(err, errNoAuth), ShouldBeTrue)
		})
	})

	Convey("Given a failing transport", t, func() {
		sink, err := NewEmailSink(EmailConfig{Addr: "mail.local:25", From: "fraud@local", To: []string{"ops@local"}})
		So(err, ShouldBeNil)
		sink.send = func(context.Context, []byte) error { return errors.New("421") }

		Convey("Then relay errors surface as delivery failures", func() {
			So(errors.Is(sink.Notify(context.Background(), payload()), ErrDeliveryFailed), ShouldBeTrue)
		})
	})

	Convey("Given an incomplete configuration", t, func() {
		_, err := NewEmailSink(EmailConfig{Addr: "no-port"})
		So(err, ShouldNotBeNil)
		_, err = NewEmailSink(EmailConfig{Addr: "mail.local:25"})
		So(err, ShouldNotBeNil)
	})
}

func TestLogSink(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithFormat(logger.FormatJSON), logger.WithOutput(&buf)), ShouldBeNil)
		defer func() { _ = logger.Init() }()

		So(NewLogSink(nil).Notify(context.Background(), payload()), ShouldBeNil)

		Convey("Then the alert is logged as a warning", func() {
			So(buf.String(), ShouldContainSubstring, `"level":"WARN"`)
			So(buf.String(), ShouldContainSubstring, "TXN_9")
		})
	})
}
