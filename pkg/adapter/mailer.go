package adapter

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Mail is a fully-formed report ready for delivery
type Mail struct {
	To       string
	Subject  string
	HTMLBody string
}

// Mailer dispatches a rendered report to a recipient. Returns success or
// failure; partial state never flows back to the pipeline.
type Mailer interface {
	Send(ctx context.Context, mail *Mail) error
}

type SMTPMailer struct {
	host     string
	port     int
	from     string
	password string
}

// NewSMTPMailer creates a mailer that delivers over SMTP with STARTTLS
func NewSMTPMailer(host string, port int, from, password string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		from:     from,
		password: password,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, mail *Mail) error {
	if mail.To == "" {
		return goerr.New("recipient address is empty")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", mail.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", mail.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(mail.HTMLBody)

	addr := net.JoinHostPort(m.host, fmt.Sprintf("%d", m.port))
	auth := smtp.PlainAuth("", m.from, m.password, m.host)

	done := make(chan error, 1)
	go func() {
		// smtp.SendMail negotiates STARTTLS when the server advertises it
		done <- smtp.SendMail(addr, auth, m.from, []string{mail.To}, []byte(msg.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			return goerr.Wrap(err, "failed to send report mail", goerr.V("to", mail.To))
		}
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "mail send canceled", goerr.V("to", mail.To))
	}
}
