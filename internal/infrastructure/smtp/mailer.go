package smtp

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-verify-api/internal/config"
)

// Mailer sends plain-text emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type mailer struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

func NewMailer(cfg *config.Config) Mailer {
	m := &mailer{
		addr: fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		from: cfg.SMTPFrom,
		send: smtp.SendMail,
		now:  time.Now,
	}
	if cfg.SMTPUsername != "" {
		m.auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return m
}

func (m *mailer) SendEmail(to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("smtp: header contains line break")
	}
	if err := m.send(m.addr, m.auth, m.from, []string{to}, m.message(to, subject, body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.addr, err)
	}
	return nil
}

func (m *mailer) message(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
