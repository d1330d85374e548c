// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-mail/mail/v2"
	"go.uber.org/zap"
)

// Email is one outbound message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config holds SMTP settings. An empty Host means mail is only logged.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Enabled reports whether enough is configured to dial SMTP.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// ErrNoRecipient is returned for an Email without To.
var ErrNoRecipient = errors.New("mailer: empty recipient")

// SMTP sends through a mail.Dialer.
type SMTP struct {
	cfg    Config
	dialer *mail.Dialer
	log    *zap.Logger
}

// NewSMTP builds an SMTP sender. Port defaults to 587.
func NewSMTP(cfg Config, log *zap.Logger) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	return &SMTP{cfg: cfg, dialer: d, log: log}
}

// New returns an SMTP sender when cfg is usable and a LogSender otherwise.
func New(cfg Config, log *zap.Logger) Sender {
	if !cfg.Enabled() {
		log.Warn("SMTP not configured; outgoing mail will be logged only")
		return LogSender{Log: log}
	}
	return NewSMTP(cfg, log)
}

// Send dials, sends and hangs up. The context deadline bounds the dial.
func (s *SMTP) Send(ctx context.Context, e Email) error {
	m, err := s.message(e)
	if err != nil {
		return err
	}
	d := *s.dialer
	if dl, ok := ctx.Deadline(); ok {
		d.Timeout = time.Until(dl)
	}

	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(m) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	}
	s.log.Info("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}

func (s *SMTP) message(e Email) (*mail.Message, error) {
	if strings.TrimSpace(e.To) == "" {
		return nil, ErrNoRecipient
	}
	m := mail.NewMessage()
	if s.cfg.FromName != "" {
		m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	} else {
		m.SetHeader("From", s.cfg.From)
	}
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.TextBody)
	if e.HTMLBody != "" {
		m.AddAlternative("text/html", e.HTMLBody)
	}
	return m, nil
}

// LogSender writes messages to the log instead of delivering them. Intended
// for development, where the verification code is read from the log.
type LogSender struct {
	Log *zap.Logger
}

func (l LogSender) Send(_ context.Context, e Email) error {
	if strings.TrimSpace(e.To) == "" {
		return ErrNoRecipient
	}
	l.Log.Info("email (not sent)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody))
	return nil
}
