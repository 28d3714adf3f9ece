package realtime

import (
	"encoding/json"
	"time"
)

const (
	ChannelJobs          = "jobs"
	ChannelMatches       = "matches"
	ChannelNotifications = "notifications"
)

const (
	EventJobEmbedded           = "job_embedded"
	EventMatchCreated          = "match_created"
	EventNotificationQueued    = "notification_queued"
	EventNotificationDelivered = "notification_delivered"
)

type Event struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

func NewEvent(typ string, data any) Event {
	return Event{
		Type:      typ,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
