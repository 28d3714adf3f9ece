package realtime

import (
	"context"
	"sync"
	"time"

	"job-match/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultPublishTimeout = 2 * time.Second

// Publisher mirrors domain events to live clients. Publish never blocks the
// caller and never fails it; delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, channel string, evt Event)
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, Event) {}

type RedisPublisher struct {
	client  *redis.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	wg sync.WaitGroup
}

// NewPublisher returns a Redis publisher, or a NoopPublisher when client is nil.
func NewPublisher(client *redis.Client, logger *zap.Logger, m *metrics.Metrics) Publisher {
	if client == nil {
		return NoopPublisher{}
	}
	return NewRedisPublisher(client, logger, m)
}

func NewRedisPublisher(client *redis.Client, logger *zap.Logger, m *metrics.Metrics) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{
		client:  client,
		logger:  logger,
		metrics: m,
		timeout: defaultPublishTimeout,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, evt Event) {
	payload, err := evt.Encode()
	if err != nil {
		p.logger.Error("realtime event encode failed",
			zap.String("channel", channel),
			zap.String("type", evt.Type),
			zap.Error(err),
		)
		p.metrics.PublishFailed(channel)
		return
	}

	// The caller's request may finish before the publish does.
	base := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		pubCtx, cancel := context.WithTimeout(base, p.timeout)
		defer cancel()

		if err := p.client.Publish(pubCtx, channel, payload).Err(); err != nil {
			p.logger.Warn("realtime publish failed",
				zap.String("channel", channel),
				zap.String("type", evt.Type),
				zap.Error(err),
			)
			p.metrics.PublishFailed(channel)
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (p *RedisPublisher) Wait() {
	p.wg.Wait()
}
