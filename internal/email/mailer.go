package email

import (
	"fmt"
	"log"

	"github.com/wneessen/go-mail"
)

// Mailer sends transactional email over SMTP
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

func NewMailer(host string, port int, username, password, from, fromName string) *Mailer {
	return &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		FromName: fromName,
	}
}

// Send delivers one HTML email. A blank host disables email entirely, which
// keeps local development working without an SMTP account.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if m.Host == "" {
		log.Printf("[Email] SMTP not configured, skipping %q to %s", subject, to)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.FromName, m.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.Host,
		mail.WithPort(m.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.Username),
		mail.WithPassword(m.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
