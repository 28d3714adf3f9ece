package domain

import "time"

const (
	DeliveryQueued = "queued"
	DeliveryInline = "inline"
)

type QueueStat struct {
	StreamLength   int64 `json:"stream_length"`
	Pending        int64 `json:"pending"`
	RetryScheduled int64 `json:"retry_scheduled"`
}

type PipelineStatus struct {
	DatabaseHealthy   bool       `json:"database_healthy"`
	RedisHealthy      bool       `json:"redis_healthy"`
	EmbeddingProvider string     `json:"embedding_provider,omitempty"`
	DeliveryMode      string     `json:"delivery_mode"`
	Queue             *QueueStat `json:"queue,omitempty"`
	ServerTime        time.Time  `json:"server_time"`
}
