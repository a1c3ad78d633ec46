// Package mail delivers transactional email out of band of the request path.
package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"sparked/internal/config"
)

// Message is a single outgoing HTML email. It is immutable once queued.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers one message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	cfg  config.MailConfig
	opts []gomail.Option
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender builds a sender from the mail configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	switch {
	case cfg.UseSSL:
		opts = append(opts, gomail.WithSSL())
	case cfg.UseTLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	return &SMTPSender{cfg: cfg, opts: opts}
}

func (s *SMTPSender) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.Username
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.from()); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)
	m.SetDate()

	client, err := gomail.NewClient(s.cfg.Server, s.opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. Used when no
// SMTP server is configured.
type LogSender struct {
	log *zap.Logger
}

var _ Sender = (*LogSender)(nil)

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email (not sent, no MAIL_SERVER configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.HTMLBody)),
		zap.Time("at", time.Now()),
	)
	return nil
}

// NewSender picks the SMTP sender when a server is configured.
func NewSender(cfg *config.Config, log *zap.Logger) Sender {
	if cfg.Mail.Server == "" {
		return NewLogSender(log.Named("mail"))
	}
	return NewSMTPSender(cfg.Mail)
}
