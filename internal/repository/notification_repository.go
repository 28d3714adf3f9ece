package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"job-match/internal/database"
	"job-match/internal/domain/notification"

	"github.com/google/uuid"
)

type NotificationLogRepository interface {
	Append(ctx context.Context, entry notification.LogEntry) error
}

type PostgresNotificationLogRepository struct {
	db database.DB
}

func NewPostgresNotificationLogRepository(db database.DB) *PostgresNotificationLogRepository {
	return &PostgresNotificationLogRepository{db: db}
}

func (r *PostgresNotificationLogRepository) Append(ctx context.Context, e notification.LogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	attempts, err := json.Marshal(e.Attempts)
	if err != nil {
		return fmt.Errorf("encode attempts: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO notification_logs (id, intent_id, recipient_id, payload, attempts, attempt, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID,
		e.IntentID,
		e.RecipientID,
		[]byte(payload),
		attempts,
		e.Attempt,
		e.CreatedAt,
	)
	return err
}

type PreferenceRepository interface {
	// Get returns the user's channel preferences; ok is false for unknown users.
	Get(ctx context.Context, userID uuid.UUID) (notification.Preferences, bool, error)
}

type PostgresPreferenceRepository struct {
	db database.DB
}

func NewPostgresPreferenceRepository(db database.DB) *PostgresPreferenceRepository {
	return &PostgresPreferenceRepository{db: db}
}

func (r *PostgresPreferenceRepository) Get(ctx context.Context, userID uuid.UUID) (notification.Preferences, bool, error) {
	var (
		p        notification.Preferences
		email    *string
		telegram *string
		whatsapp *string
	)
	row := r.db.QueryRow(ctx,
		`SELECT u.id, u.email, p.telegram_chat_id, p.whatsapp_number,
			COALESCE(p.email_enabled, true), COALESCE(p.telegram_enabled, false), COALESCE(p.whatsapp_enabled, false)
		 FROM users u
		 LEFT JOIN notification_preferences p ON p.user_id = u.id
		 WHERE u.id = $1`,
		userID,
	)
	if err := row.Scan(&p.UserID, &email, &telegram, &whatsapp, &p.EmailEnabled, &p.TelegramEnabled, &p.WhatsAppEnabled); err != nil {
		if database.IsNoRows(err) {
			return notification.Preferences{}, false, nil
		}
		return notification.Preferences{}, false, err
	}
	p.Email = deref(email)
	p.TelegramChatID = deref(telegram)
	p.WhatsAppNumber = deref(whatsapp)
	return p, true, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
