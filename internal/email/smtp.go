package email

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends email through an SMTP relay
type SMTPSender struct {
	dialer dialer
	from   string
}

// NewSMTPSender creates a sender for the given relay
func NewSMTPSender(host string, port int, user, password, fromEmail, fromName string) *SMTPSender {
	slog.Info("Email service enabled", "provider", "smtp", "host", host, "port", port, "from", fromEmail)
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   fromAddress(fromEmail, fromName),
	}
}

// Send delivers msg. gomail does not take a context, so ctx is only checked
// before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	slog.Info("Email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
