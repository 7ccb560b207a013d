package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"campusnest/market/internal/config"
)

// Sender defines the interface for sending emails.
// The rawMessage parameter should contain the full email message, including headers and body, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates a new SMTPSender, or a LoggingSender when no SMTP host is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		slog.Info("SMTP host not configured, using logging email sender")
		return NewLoggingSender(cfg)
	}

	auth := smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	addr := fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort)

	return &SMTPSender{
		cfg:  cfg,
		auth: auth,
		addr: addr,
	}
}

// Send sends an email using SMTP.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	err := smtp.SendMail(s.addr, s.auth, s.cfg.SmtpFromAddress, to, rawMessage)
	if err != nil {
		slog.Error("failed to send email via SMTP", "to", to, "error", err)
		return fmt.Errorf("smtp error: %w", err)
	}
	slog.Info("email sent via SMTP", "to", to, "subject", subject)
	return nil
}

// LoggingSender just logs email details. Used in development.
type LoggingSender struct {
	cfg *config.Config
}

func NewLoggingSender(cfg *config.Config) *LoggingSender {
	return &LoggingSender{cfg: cfg}
}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	slog.Info("email (logged, not sent)",
		"to", to,
		"from", s.cfg.SmtpFromAddress,
		"subject", subject,
		"message", string(rawMessage))
	return nil
}
