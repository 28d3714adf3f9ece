package channel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"job-match/internal/config"
)

type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) configured() bool {
	return s != nil && strings.TrimSpace(s.cfg.Host) != "" && s.cfg.Port > 0 && strings.TrimSpace(s.cfg.From) != ""
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if !s.configured() {
		return ErrChannelNotConfigured
	}
	from := strings.TrimSpace(s.cfg.From)
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("smtp: invalid recipient %q", to)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return requestError("smtp dial", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return transient(fmt.Errorf("smtp handshake: %w", err))
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return smtpError("mail from", err)
	}
	if err := c.Rcpt(to); err != nil {
		return smtpError("rcpt to", err)
	}
	w, err := c.Data()
	if err != nil {
		return smtpError("data", err)
	}
	if _, err := w.Write(buildMessage(from, to, subject, body)); err != nil {
		return transient(fmt.Errorf("smtp write: %w", err))
	}
	if err := w.Close(); err != nil {
		return smtpError("data close", err)
	}
	return c.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte("From: " + headerValue(from) + "\r\n" +
		"To: " + headerValue(to) + "\r\n" +
		"Subject: " + mime.QEncoding.Encode("utf-8", headerValue(subject)) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body)
}

// headerValue folds CR and LF into spaces so a value cannot start a new header.
func headerValue(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

// smtpError treats 4xx replies and I/O errors as transient, 5xx as permanent.
func smtpError(step string, err error) error {
	wrapped := fmt.Errorf("smtp %s: %w", step, err)
	var tp *textproto.Error
	if errors.As(err, &tp) && tp.Code >= 500 {
		return wrapped
	}
	return transient(wrapped)
}
