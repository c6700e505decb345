// internal/app/system/mailer/mailer.go
//
// Package mailer delivers transactional email (workgroup invitations) over
// SMTP. When no SMTP host is configured, messages are logged instead of sent
// so local development works without a mail server.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single SMTP delivery when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Email is a single outbound message with text and HTML alternatives.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email. Send must return once ctx is done.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
	Timeout  time.Duration
}

// Mailer sends email through an SMTP relay (Mailpit, SES, Postfix...).
type Mailer struct {
	log     *zap.Logger
	from    string
	timeout time.Duration
	deliver func(ctx context.Context, msg email.Message) error
}

// New returns a Mailer for cfg.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	sender := email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.User,
		Password:    cfg.Pass,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		Timeout:     cfg.Timeout,
	})
	return &Mailer{
		log:     logger,
		from:    cfg.From,
		timeout: cfg.Timeout,
		deliver: sender.Send,
	}
}

// Send delivers msg. It returns when delivery finishes, when ctx is done or
// after the configured timeout, whichever comes first.
func (m *Mailer) Send(ctx context.Context, msg Email) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mailer: empty recipient")
	}
	if m.from == "" {
		return errors.New("mailer: from address not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// The SMTP client does not bound every read by ctx (a server that
	// accepts but never greets stalls it), so delivery runs aside and the
	// caller is released on ctx.
	done := make(chan error, 1)
	start := time.Now()
	go func() {
		done <- m.deliver(ctx, email.Message{
			To:       []string{msg.To},
			Subject:  msg.Subject,
			TextBody: msg.TextBody,
			HTMLBody: msg.HTMLBody,
		})
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		m.log.Warn("smtp send failed",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Info("email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Duration("took", time.Since(start)))
	return nil
}

// LogSender records messages in the log instead of delivering them.
type LogSender struct {
	Log *zap.Logger
}

// Send logs msg and never fails.
func (s LogSender) Send(_ context.Context, msg Email) error {
	s.Log.Info("email not sent (no SMTP host configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.TextBody))
	return nil
}

// NewSender returns an SMTP Mailer when a host is configured, otherwise a
// LogSender.
func NewSender(cfg Config, logger *zap.Logger) Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		return LogSender{Log: logger}
	}
	return New(cfg, logger)
}
