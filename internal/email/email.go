// Package email delivers invitation and notification messages through
// Amazon SES or an SMTP relay.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"mmanyinorie/internal/config"
)

// Message is a rendered email with HTML and plain text bodies
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// disabledSender accepts every message without delivering it
type disabledSender struct{}

func (disabledSender) Send(_ context.Context, msg Message) error {
	slog.Info("Skipping email send (service disabled)", "to", msg.To, "subject", msg.Subject)
	return nil
}

// NewSender builds the sender selected by EMAIL_PROVIDER
func NewSender(ctx context.Context, cfg *config.Config) (Sender, error) {
	switch cfg.EmailProvider {
	case "ses":
		return NewSESSender(ctx, cfg.AWSRegion, cfg.FromEmail, cfg.FromName)
	case "smtp":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail, cfg.FromName), nil
	case "none", "":
		slog.Info("Email service disabled: EMAIL_PROVIDER is none")
		return disabledSender{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}

// Disabled returns a sender that drops every message
func Disabled() Sender {
	return disabledSender{}
}

func fromAddress(fromEmail, fromName string) string {
	if fromName == "" {
		return fromEmail
	}
	return fmt.Sprintf("%s <%s>", fromName, fromEmail)
}
