package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"tourism-app/internal/infra/logger"
)

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SMTPSender struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := render(m)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.config.From, s.config.FromName)
	msg.SetAddressHeader("To", m.To, m.Name)
	msg.SetHeader("Subject", r.Subject)
	msg.SetBody("text/plain", r.Text)
	msg.AddAlternative("text/html", r.HTML)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogSender writes rendered notifications to the log. Used when no SMTP
// host is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, m Message) error {
	r, err := render(m)
	if err != nil {
		return err
	}
	logger.WithComponent("notify").Info("notification", "kind", m.Kind, "user_id", m.UserID, "subject", r.Subject)
	return nil
}
