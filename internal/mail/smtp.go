// smtp.go
//
// Mailer interface, the SMTP transport and the no-op fallback.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Mailer sends the two transactional emails the service knows about.
type Mailer interface {
	// SendWelcome greets a newly registered user. Callers treat failure as non-fatal.
	SendWelcome(ctx context.Context, toEmail, firstName string) error

	// SendPasswordReset mails resetURL (token included). vars fills %%key%%
	// placeholders such as firstName; url, toEmail and expiresIn are set by the mailer.
	SendPasswordReset(ctx context.Context, toEmail, resetURL string, expiresIn time.Duration, vars map[string]string) error
}

// SMTPConfig holds all configuration for SMTPMailer.
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	FromAddress string
}

// SMTPMailer delivers over SMTP with mandatory STARTTLS.
type SMTPMailer struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPMailer returns a mailer for the given server.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, now: time.Now}
}

// NopMailer drops everything. Used when SMTP_HOST is unset.
type NopMailer struct{}

func (*NopMailer) SendWelcome(context.Context, string, string) error { return nil }

func (*NopMailer) SendPasswordReset(context.Context, string, string, time.Duration, map[string]string) error {
	return nil
}

// SendWelcome emails the registration greeting.
func (m *SMTPMailer) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	if err := m.deliver(ctx, toEmail, m.welcomeMessage(toEmail, firstName)); err != nil {
		return fmt.Errorf("sending welcome email: %w", err)
	}
	return nil
}

// SendPasswordReset emails the reset link.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, toEmail, resetURL string, expiresIn time.Duration, vars map[string]string) error {
	if err := m.deliver(ctx, toEmail, m.resetMessage(toEmail, resetURL, expiresIn, vars)); err != nil {
		return fmt.Errorf("sending password reset email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) welcomeMessage(toEmail, firstName string) string {
	subject, body := welcomeTemplate.render(
		map[string]string{"firstName": firstName},
		map[string]string{"toEmail": toEmail},
	)
	return m.envelope(toEmail, subject, body)
}

func (m *SMTPMailer) resetMessage(toEmail, resetURL string, expiresIn time.Duration, vars map[string]string) string {
	subject, body := resetTemplate.render(vars, map[string]string{
		"toEmail":   toEmail,
		"url":       resetURL,
		"expiresIn": humanDuration(expiresIn),
	})
	return m.envelope(toEmail, subject, body)
}

// oneLine drops CR and LF so header values can't smuggle extra headers.
var oneLine = strings.NewReplacer("\r", "", "\n", "")

// envelope prepends the RFC 5322 headers.
func (m *SMTPMailer) envelope(toEmail, subject, body string) string {
	var b strings.Builder
	for _, h := range [][2]string{
		{"From", m.cfg.FromAddress},
		{"To", toEmail},
		{"Subject", subject},
		{"Date", m.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	} {
		b.WriteString(h[0] + ": " + oneLine.Replace(h[1]) + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// deliver runs one SMTP transaction. Servers that don't offer STARTTLS are
// refused; ctx bounds the dial and, through its deadline, the whole session.
func (m *SMTPMailer) deliver(ctx context.Context, toEmail, msg string) error {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", net.JoinHostPort(m.cfg.Host, m.cfg.Port))
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return errors.New("smtp server does not offer STARTTLS")
	}
	if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("smtp starttls: %w", err)
	}
	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.cfg.FromAddress); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(oneLine.Replace(toEmail)); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		wc.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp end of data: %w", err)
	}
	return c.Quit()
}
