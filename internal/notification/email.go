package notification

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// EmailSender delivers plain-text notification mail.
type EmailSender interface {
	Send(to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	config SMTPConfig
	logger *slog.Logger
}

func NewSMTPSender(config SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		config: config,
		logger: logger,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	msg := strings.Join([]string{
		"From: " + s.config.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	s.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}

// NoopSender is used when SMTP is not configured; it logs instead of
// sending.
type NoopSender struct {
	logger *slog.Logger
}

func NewNoopSender(logger *slog.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

func (s *NoopSender) Send(to, subject, body string) error {
	s.logger.Info("email suppressed, smtp not configured", "to", to, "subject", subject)
	return nil
}
