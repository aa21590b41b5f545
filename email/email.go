package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers transactional mail over plain SMTP.
type Mailer struct {
	address  string
	password string
	host     string
	port     string
}

func New(address string, password string, host string, port string) *Mailer {
	return &Mailer{
		address:  address,
		password: password,
		host:     host,
		port:     port,
	}
}

func (m *Mailer) SendActivation(to string, name string, code string) error {
	subject := "Activate your account"
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nYour activation code is %s.\r\nIt expires shortly, so use it soon.\r\n",
		name, code,
	)

	return m.send(to, subject, body)
}

func (m *Mailer) send(to string, subject string, body string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.address)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("\r\n")
	b.WriteString(body)

	auth := smtp.PlainAuth("", m.address, m.password, m.host)
	addr := m.host + ":" + m.port

	if err := smtp.SendMail(addr, auth, m.address, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}

	return nil
}
