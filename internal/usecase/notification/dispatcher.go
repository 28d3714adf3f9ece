package notification

import (
	"context"

	"job-match/internal/domain/notification"
	"job-match/internal/infrastructure/queue"
	"job-match/internal/metrics"
	"job-match/internal/realtime"

	"go.uber.org/zap"
)

type EnqueueResult struct {
	Queued bool                 `json:"queued"`
	TaskID string               `json:"task_id,omitempty"`
	Report *notification.Report `json:"report,omitempty"`
}

// Dispatcher accepts notification intents. Which strategy runs is decided
// once at startup by NewDispatcher.
type Dispatcher interface {
	Enqueue(ctx context.Context, intent notification.Intent) (EnqueueResult, error)
}

type Queue interface {
	Enqueue(ctx context.Context, intent notification.Intent) (queue.Task, error)
}

// QueueDispatcher hands intents to the durable queue and returns at once.
type QueueDispatcher struct {
	queue     Queue
	publisher realtime.Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewQueueDispatcher(q Queue, publisher realtime.Publisher, logger *zap.Logger, m *metrics.Metrics) *QueueDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = realtime.NoopPublisher{}
	}
	return &QueueDispatcher{queue: q, publisher: publisher, logger: logger, metrics: m}
}

func (d *QueueDispatcher) Enqueue(ctx context.Context, intent notification.Intent) (EnqueueResult, error) {
	intent = intent.WithID()
	if err := intent.Validate(); err != nil {
		return EnqueueResult{}, err
	}

	task, err := d.queue.Enqueue(ctx, intent)
	if err != nil {
		return EnqueueResult{}, err
	}
	d.metrics.Dispatched("queued")
	d.logger.Debug("notification queued", zap.String("intent_id", intent.ID), zap.String("task_id", task.ID))
	d.publisher.Publish(ctx, realtime.ChannelNotifications, realtime.NewEvent(realtime.EventNotificationQueued, map[string]any{
		"intent_id": intent.ID,
		"task_id":   task.ID,
	}))
	return EnqueueResult{Queued: true, TaskID: task.ID}, nil
}

// InlineDispatcher runs the worker synchronously with a single, final
// attempt. It serves deployments without a broker.
type InlineDispatcher struct {
	worker  *Worker
	metrics *metrics.Metrics
}

func NewInlineDispatcher(w *Worker, m *metrics.Metrics) *InlineDispatcher {
	return &InlineDispatcher{worker: w, metrics: m}
}

func (d *InlineDispatcher) Enqueue(ctx context.Context, intent notification.Intent) (EnqueueResult, error) {
	intent = intent.WithID()
	if err := intent.Validate(); err != nil {
		return EnqueueResult{}, err
	}

	report, err := d.worker.Deliver(ctx, notification.Delivery{Intent: intent, Attempt: 1, MaxAttempts: 1})
	if err != nil {
		return EnqueueResult{}, err
	}
	d.metrics.Dispatched("inline")
	return EnqueueResult{Queued: false, Report: &report}, nil
}

// NewDispatcher queues when a broker queue is available and delivers inline
// otherwise.
func NewDispatcher(q *queue.RedisQueue, w *Worker, publisher realtime.Publisher, logger *zap.Logger, m *metrics.Metrics) Dispatcher {
	if q == nil {
		return NewInlineDispatcher(w, m)
	}
	return NewQueueDispatcher(q, publisher, logger, m)
}
