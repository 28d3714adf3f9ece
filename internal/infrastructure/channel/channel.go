package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

var ErrChannelNotConfigured = errors.New("channel not configured")

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type TelegramSender interface {
	SendTelegram(ctx context.Context, chatID, message string) error
}

type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, message string) error
}

// TransientError marks a failure worth retrying later: network errors,
// timeouts, rate limiting and server-side errors.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// StatusError is a non-2xx answer from a provider API.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

func statusError(provider string, status int, msg string) error {
	err := &StatusError{Provider: provider, Status: status, Message: msg}
	if status == http.StatusTooManyRequests || status >= 500 {
		return transient(err)
	}
	return err
}

// requestError classifies a failed round trip. A *url.Error is unwrapped
// first: its URL may carry credentials such as the Telegram bot token.
func requestError(step string, err error) error {
	if err == nil {
		return nil
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	err = fmt.Errorf("%s: %w", step, err)
	if errors.Is(err, context.Canceled) {
		return err
	}
	return transient(err)
}
