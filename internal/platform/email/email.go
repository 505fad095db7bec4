package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"accessgov/internal/domain/notifications"
	"accessgov/internal/platform/config"
)

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, from, to, subject, text, html string) error {
	return nil
}

type smtpMailer struct {
	cfg config.Config
}

func New(cfg config.Config) notifications.Mailer {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

func (s *smtpMailer) Send(ctx context.Context, from, to, subject, text, html string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	msg := buildMessage(from, to, subject, text, html)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.SMTPUseTLS {
		tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}
		if err := client.StartTLS(tlsConfig); err != nil {
			return err
		}
	}

	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

const altBoundary = "=_accessgov_alt"

// buildMessage emits multipart/alternative with the plain-text part first
// so clients fall back correctly; without an HTML part it stays text/plain.
func buildMessage(from, to, subject, text, html string) []byte {
	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
	}

	if html == "" {
		headers = append(headers, "Content-Type: text/plain; charset=\"UTF-8\"", "")
		return []byte(strings.Join(headers, "\r\n") + "\r\n" + text)
	}

	headers = append(headers, fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", altBoundary), "")
	parts := []string{
		strings.Join(headers, "\r\n"),
		"--" + altBoundary,
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		text,
		"--" + altBoundary,
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		html,
		"--" + altBoundary + "--",
		"",
	}
	return []byte(strings.Join(parts, "\r\n"))
}
