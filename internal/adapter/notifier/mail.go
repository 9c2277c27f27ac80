package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Mail sends the failure report as a plain-text message to the operator
// address through a local or relaying SMTP server.
type Mail struct {
	host string
	port int
	from string
	to   string
}

func NewMail(host string, port int, from, to string) *Mail {
	if port == 0 {
		port = 25
	}
	return &Mail{host: host, port: port, from: from, to: to}
}

func (m *Mail) Notify(ctx context.Context, subject string, body string) error {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	msg := buildMessage(m.from, m.to, subject, body)

	if err := smtp.SendMail(addr, nil, m.from, []string{m.to}, msg); err != nil {
		return fmt.Errorf("failed to send mail via %s: %w", addr, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
