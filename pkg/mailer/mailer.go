// Package mailer delivers outgoing email through SMTP, SendGrid or the log.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/pkg/config"
)

// Provider names accepted in MAIL_PROVIDER.
const (
	ProviderLog      = "log"
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// Message is a single outgoing email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
}

// Validate checks the minimum fields a provider needs.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return errors.New("message has no recipients")
	}
	for _, to := range m.To {
		if strings.TrimSpace(to) == "" {
			return errors.New("message has a blank recipient")
		}
	}
	if m.Subject == "" {
		return errors.New("message has no subject")
	}
	if m.Text == "" && m.HTML == "" {
		return errors.New("message has no content")
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Address is the From identity.
type Address struct {
	Name  string
	Email string
}

// New selects a Sender for the configured provider.
func New(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	from := Address{Name: cfg.FromName, Email: cfg.FromAddress}
	switch cfg.Provider {
	case "", ProviderLog:
		return NewLogSender(logger), nil
	case ProviderSMTP:
		return NewSMTPSender(from, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), nil
	case ProviderSendGrid:
		if cfg.SendGridKey == "" {
			return nil, errors.New("sendgrid provider requires SENDGRID_API_KEY")
		}
		return NewSendGridSender(from, cfg.SendGridKey), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.Info("mail", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.String("text", msg.Text))
	return nil
}
