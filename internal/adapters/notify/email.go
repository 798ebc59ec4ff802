package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/okian/fraudscope/internal/domain/model"
)

// EmailConfig addresses the SMTP relay.
type EmailConfig struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
	To       []string
}

// DefaultSMTPTimeout bounds a whole SMTP exchange when the caller's
// context carries no deadline.
const DefaultSMTPTimeout = 30 * time.Second

var errNoAuth = errors.New("smtp: server doesn't support AUTH")

type sendFunc func(ctx context.Context, msg []byte) error

// EmailSink sends a plain-text alert mail.
type EmailSink struct {
	cfg  EmailConfig
	host string
	auth smtp.Auth
	send sendFunc
}

// NewEmailSink validates cfg and prepares PLAIN auth when a username is set.
func NewEmailSink(cfg EmailConfig) (*EmailSink, error) {
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("smtp address %q: %w", cfg.Addr, err)
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("smtp: sender and recipients are required")
	}
	s := &EmailSink{cfg: cfg, host: host}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	s.send = s.sendMail
	return s, nil
}

// Name returns "email".
func (s *EmailSink) Name() string { return "email" }

// Notify sends the mail. The exchange is bounded by ctx.
func (s *EmailSink) Notify(ctx context.Context, alert model.AlertPayload) error { //nolint:gocritic // value semantics
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(ctx, s.message(alert)); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// sendMail is smtp.SendMail over a connection whose deadline follows ctx.
func (s *EmailSink) sendMail(ctx context.Context, msg []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultSMTPTimeout)
	}

	d := net.Dialer{Deadline: deadline}
	conn, err := d.DialContext(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return err
	}
	// unblock reads when ctx is cancelled before the deadline
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errNoAuth
		}
		if err := c.Auth(s.auth); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range s.cfg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *EmailSink) message(alert model.AlertPayload) []byte { //nolint:gocritic // value semantics
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: [%s] %s %s\r\n", model.SeverityCritical, model.AlertTypeHighRisk, alert.TransactionID)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "%s\r\n\r\n", alert.Message())
	fmt.Fprintf(&b, "User: %s\r\nAmount: %.2f\r\nTime: %s\r\n", alert.UserID, alert.Amount, alert.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	if len(alert.Tags) > 0 {
		fmt.Fprintf(&b, "Risk factors: %s\r\n", strings.Join(alert.Tags, ", "))
	}
	return []byte(b.String())
}
