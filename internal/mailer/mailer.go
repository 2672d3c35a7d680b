// Package mailer sends the site's outgoing mail (admin replies and contact
// notifications) over SMTP, off the request path.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("smtp credentials not configured")

// Mail is one outgoing message.
type Mail struct {
	// Kind labels the mail for logs and metrics: "reply" or "notify".
	Kind    string
	To      []string
	ReplyTo string
	Subject string
	Body    string
	// Ref is the inbox message a reply answers, or zero.
	Ref int64
}

// Reply builds an admin reply to an inbox message.
func Reply(ref int64, to, subject, body string) Mail {
	return Mail{Kind: "reply", To: []string{to}, Subject: subject, Body: body, Ref: ref}
}

// Sender delivers a Mail.
type Sender interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPSender delivers mail through an SMTP server with STARTTLS and PLAIN auth.
type SMTPSender struct {
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	Timeout time.Duration
}

// Configured reports whether credentials are present.
func (s *SMTPSender) Configured() bool {
	return s.User != "" && s.Pass != ""
}

func (s *SMTPSender) from() string {
	if s.From != "" {
		return s.From
	}
	return s.User
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, m Mail) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if len(m.To) == 0 {
		return errors.New("mail has no recipients")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	conn.SetDeadline(time.Now().Add(3 * timeout))

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if err := c.Auth(smtp.PlainAuth("", s.User, s.Pass, s.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := c.Mail(s.from()); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range m.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(Compose(s.from(), m, time.Now())); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}
	return c.Quit()
}

// Compose renders m as an RFC 5322 message with a UTF-8 plain text body.
func Compose(from string, m Mail, date time.Time) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}

	header("From", headerValue(from))
	header("To", headerValue(strings.Join(m.To, ", ")))
	if m.ReplyTo != "" {
		header("Reply-To", headerValue(m.ReplyTo))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", headerValue(m.Subject)))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

// headerValue strips line breaks so user input cannot add headers.
func headerValue(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(v))
}

// ContactNotification builds the mail sent to the site owner for a new
// contact form submission.
func ContactNotification(to, name, email, subject, message string) Mail {
	return Mail{
		Kind:    "notify",
		To:      []string{to},
		ReplyTo: email,
		Subject: "Portfolio Contact: " + name,
		Body: fmt.Sprintf(`New contact form submission from your portfolio:

Name: %s
Email: %s
Subject: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, email, subject, message),
	}
}
