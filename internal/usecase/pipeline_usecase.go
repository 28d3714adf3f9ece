package usecase

import (
	"context"
	"time"

	"job-match/internal/domain"
	"job-match/internal/infrastructure/queue"
)

type PipelineUsecase interface {
	GetStatus(ctx context.Context) (*domain.PipelineStatus, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type QueueStatter interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

type Pipeline struct {
	db       Pinger
	redis    Pinger
	queue    QueueStatter
	provider string
	now      func() time.Time
}

// NewPipelineUsecase reports service health. Nil dependencies are reported
// as unhealthy or absent; providerModel is empty when no embedding provider
// is configured.
func NewPipelineUsecase(db Pinger, redis Pinger, q QueueStatter, providerModel string) *Pipeline {
	return &Pipeline{db: db, redis: redis, queue: q, provider: providerModel, now: time.Now}
}

func (u *Pipeline) GetStatus(ctx context.Context) (*domain.PipelineStatus, error) {
	st := &domain.PipelineStatus{
		EmbeddingProvider: u.provider,
		DeliveryMode:      domain.DeliveryInline,
		ServerTime:        u.now().UTC(),
	}

	if u.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := u.db.Ping(pingCtx)
		cancel()
		st.DatabaseHealthy = err == nil
	}

	if u.redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := u.redis.Ping(pingCtx)
		cancel()
		st.RedisHealthy = err == nil
	}

	if u.queue != nil {
		st.DeliveryMode = domain.DeliveryQueued
		statsCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		s, err := u.queue.Stats(statsCtx)
		cancel()
		if err == nil {
			st.Queue = &domain.QueueStat{
				StreamLength:   s.StreamLength,
				Pending:        s.Pending,
				RetryScheduled: s.RetryScheduled,
			}
		}
	}

	return st, nil
}
