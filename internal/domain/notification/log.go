package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ChannelAttempt struct {
	Channel   Channel `json:"channel"`
	Success   bool    `json:"success"`
	Skipped   bool    `json:"skipped,omitempty"`
	Transient bool    `json:"transient,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// LogEntry is the append-only audit row of one dispatch attempt set.
type LogEntry struct {
	ID          uuid.UUID
	IntentID    string
	RecipientID *uuid.UUID
	Payload     json.RawMessage
	Attempts    []ChannelAttempt
	Attempt     int
	CreatedAt   time.Time
}

type Report struct {
	IntentID        string           `json:"intent_id"`
	Attempt         int              `json:"attempt"`
	Attempts        []ChannelAttempt `json:"attempts"`
	Succeeded       int              `json:"succeeded"`
	Failed          int              `json:"failed"`
	Skipped         int              `json:"skipped"`
	MatchesNotified int              `json:"matches_notified"`
	Retry           bool             `json:"retry"`
}

func NewReport(intentID string, attempt int, attempts []ChannelAttempt) Report {
	r := Report{IntentID: intentID, Attempt: attempt, Attempts: attempts}
	for _, a := range attempts {
		switch {
		case a.Success:
			r.Succeeded++
		case a.Skipped:
			r.Skipped++
		default:
			r.Failed++
		}
	}
	return r
}

// Retryable reports whether the attempt set should be retried: nothing got
// through and at least one channel failed transiently.
func (r Report) Retryable() bool {
	if r.Succeeded > 0 {
		return false
	}
	for _, a := range r.Attempts {
		if !a.Success && !a.Skipped && a.Transient {
			return true
		}
	}
	return false
}
