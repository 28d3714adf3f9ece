package notification

import (
	"errors"
	"fmt"
	"strings"

	"job-match/internal/domain/match"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
)

var AllChannels = []Channel{ChannelEmail, ChannelTelegram, ChannelWhatsApp}

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelTelegram, ChannelWhatsApp:
		return true
	default:
		return false
	}
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown channel %q", ErrInvalidIntent, s)
	}
	return c, nil
}

var (
	ErrInvalidIntent = errors.New("invalid notification intent")

	// ErrTransientDelivery asks the queue to retry the whole intent.
	ErrTransientDelivery = errors.New("transient delivery failure")
)

// Recipient selects who receives an intent. UserID resolves stored
// preferences; explicit addresses override the stored ones.
type Recipient struct {
	UserID         uuid.UUID `json:"user_id,omitempty"`
	Email          string    `json:"email,omitempty"`
	TelegramChatID string    `json:"telegram_chat_id,omitempty"`
	WhatsApp       string    `json:"whatsapp,omitempty"`
}

func (r Recipient) HasUser() bool {
	return r.UserID != uuid.Nil
}

func (r Recipient) address(c Channel) string {
	switch c {
	case ChannelEmail:
		return strings.TrimSpace(r.Email)
	case ChannelTelegram:
		return strings.TrimSpace(r.TelegramChatID)
	case ChannelWhatsApp:
		return strings.TrimSpace(r.WhatsApp)
	default:
		return ""
	}
}

type Intent struct {
	ID         string         `json:"id"`
	Recipient  Recipient      `json:"recipient"`
	Channels   []Channel      `json:"channels,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body,omitempty"`
	Template   string         `json:"template,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	JobID      *uuid.UUID     `json:"job_id,omitempty"`
	MatchScore *int           `json:"match_score,omitempty"`
	Matches    []match.Key    `json:"matches,omitempty"`
}

func (i Intent) Validate() error {
	if !i.Recipient.HasUser() &&
		i.Recipient.Email == "" && i.Recipient.TelegramChatID == "" && i.Recipient.WhatsApp == "" {
		return fmt.Errorf("%w: recipient has no user or address", ErrInvalidIntent)
	}
	if strings.TrimSpace(i.Body) == "" && strings.TrimSpace(i.Template) == "" {
		return fmt.Errorf("%w: body or template required", ErrInvalidIntent)
	}
	if i.Template != "" {
		if _, ok := templates[i.Template]; !ok {
			return fmt.Errorf("%w: unknown template %q", ErrInvalidIntent, i.Template)
		}
	}
	for _, c := range i.Channels {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidIntent, c)
		}
	}
	for _, k := range i.Matches {
		if !k.Valid() {
			return fmt.Errorf("%w: match key requires user and job", ErrInvalidIntent)
		}
	}
	return nil
}

// WithID returns a copy carrying a fresh id when none is set.
func (i Intent) WithID() Intent {
	if strings.TrimSpace(i.ID) == "" {
		i.ID = uuid.NewString()
	}
	return i
}

// Delivery is one worker invocation over an intent.
type Delivery struct {
	Intent      Intent
	Attempt     int
	MaxAttempts int
}

// Final reports whether a failure on this delivery will not be retried.
func (d Delivery) Final() bool {
	return d.Attempt >= d.MaxAttempts
}
