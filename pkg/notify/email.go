package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Mailer sends plain-text email over SMTP.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewMailer creates a mailer. Host and From are required.
func NewMailer(host string, port int, username, password, from string) (*Mailer, error) {
	if host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if from == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	if port == 0 {
		port = 587
	}
	return &Mailer{Host: host, Port: port, Username: username, Password: password, From: from}, nil
}

// Send delivers one message to one recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient address is required")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Debug().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}
