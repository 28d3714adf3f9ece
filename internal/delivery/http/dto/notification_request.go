package dto

import (
	"reflect"
	"strings"

	"job-match/internal/domain/match"
	"job-match/internal/domain/notification"

	"github.com/google/uuid"
)

type RecipientRequest struct {
	UserID         string `json:"user_id" validate:"omitempty,uuid"`
	Email          string `json:"email" validate:"omitempty,email"`
	TelegramChatID string `json:"telegram_chat_id" validate:"omitempty,max=64"`
	WhatsApp       string `json:"whatsapp" validate:"omitempty,e164"`
}

type MatchKeyRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	JobID  string `json:"job_id" validate:"required,uuid"`
}

type NotificationRequest struct {
	ID         string            `json:"id" validate:"omitempty,max=128"`
	Recipient  RecipientRequest  `json:"recipient"`
	Channels   []string          `json:"channels" validate:"omitempty,dive,oneof=email telegram whatsapp"`
	Subject    string            `json:"subject" validate:"max=255"`
	Body       string            `json:"body" validate:"required_without=Template,max=4096"`
	Template   string            `json:"template" validate:"omitempty,oneof=job_match"`
	Data       map[string]any    `json:"data"`
	JobID      string            `json:"job_id" validate:"omitempty,uuid"`
	MatchScore *int              `json:"match_score" validate:"omitempty,min=0,max=100"`
	Matches    []MatchKeyRequest `json:"matches" validate:"omitempty,dive"`
}

// ToIntent converts a validated request. Parsing cannot fail after
// validation, but malformed ids still surface as ErrInvalidIntent.
func (r NotificationRequest) ToIntent() (notification.Intent, error) {
	intent := notification.Intent{
		ID:         strings.TrimSpace(r.ID),
		Subject:    r.Subject,
		Body:       r.Body,
		Template:   r.Template,
		Data:       r.Data,
		MatchScore: r.MatchScore,
		Recipient: notification.Recipient{
			Email:          strings.TrimSpace(r.Recipient.Email),
			TelegramChatID: strings.TrimSpace(r.Recipient.TelegramChatID),
			WhatsApp:       strings.TrimSpace(r.Recipient.WhatsApp),
		},
	}

	if r.Recipient.UserID != "" {
		id, err := uuid.Parse(r.Recipient.UserID)
		if err != nil {
			return notification.Intent{}, notification.ErrInvalidIntent
		}
		intent.Recipient.UserID = id
	}
	if r.JobID != "" {
		id, err := uuid.Parse(r.JobID)
		if err != nil {
			return notification.Intent{}, notification.ErrInvalidIntent
		}
		intent.JobID = &id
	}
	for _, c := range r.Channels {
		ch, err := notification.ParseChannel(c)
		if err != nil {
			return notification.Intent{}, err
		}
		intent.Channels = append(intent.Channels, ch)
	}
	for _, k := range r.Matches {
		userID, err1 := uuid.Parse(k.UserID)
		jobID, err2 := uuid.Parse(k.JobID)
		if err1 != nil || err2 != nil {
			return notification.Intent{}, notification.ErrInvalidIntent
		}
		intent.Matches = append(intent.Matches, match.Key{UserID: userID, JobID: jobID})
	}
	return intent, nil
}

type NotifyPendingRequest struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=1000"`
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}
