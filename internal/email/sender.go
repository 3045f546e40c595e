// Package email delivers notification emails over SMTP, or to the log when
// running without a mail server.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jimdaga/ascend/internal/config"
)

// Message is one outgoing email
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages. The returned id identifies the message at the
// provider and is recorded on the notification row.
type Sender interface {
	Send(ctx context.Context, msg Message) (id string, err error)
}

// NewSender picks the SMTP sender, or the log sender when EmailStub is set
// or no SMTP host is configured
func NewSender(cfg *config.Config) Sender {
	if cfg.EmailStub || cfg.SMTPHost == "" {
		slog.Info("Email delivery stubbed, messages will be logged")
		return NewLogSender(slog.Default())
	}
	return NewSMTPSender(SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	})
}

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender on logger
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs msg and returns a synthetic id
func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("email has no recipient")
	}
	id := "stub-" + uuid.NewString()
	s.logger.InfoContext(ctx, "Email (stub)",
		"to", msg.To,
		"subject", msg.Subject,
		"message_id", id,
	)
	return id, nil
}
