package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/slotwise/booking-api/pkg/logger"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type smtpSender struct {
	dialer *gomail.Dialer
	cfg    SMTPConfig
	logger *logger.Logger
}

func NewSMTPSender(cfg SMTPConfig, log *logger.Logger) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
		logger: log,
	}
}

func (s *smtpSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	s.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}

// NoopSender drops every email. Used in tests and local development when no
// SMTP server is configured.
type NoopSender struct{}

func (NoopSender) Send(_ context.Context, _, _, _ string) error { return nil }
