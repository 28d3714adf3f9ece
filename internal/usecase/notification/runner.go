package notification

import (
	"context"
	"errors"
	"fmt"

	"job-match/internal/domain/notification"
	"job-match/internal/infrastructure/queue"

	"go.uber.org/zap"
)

type Consumer interface {
	EnsureGroup(ctx context.Context) error
	Consume(ctx context.Context, consumer string, h queue.Handler) error
}

// Runner feeds queued tasks to the worker until ctx is cancelled.
type Runner struct {
	queue    Consumer
	worker   *Worker
	consumer string
	logger   *zap.Logger
}

func NewRunner(q Consumer, w *Worker, consumer string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{queue: q, worker: w, consumer: consumer, logger: logger}
}

func (r *Runner) Run(ctx context.Context) error {
	if err := r.queue.EnsureGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}
	err := r.queue.Consume(ctx, r.consumer, r.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle delivers one task. Malformed intents are dropped since a retry
// cannot fix them.
func (r *Runner) Handle(ctx context.Context, task queue.Task) error {
	_, err := r.worker.Deliver(ctx, task.Delivery())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notification.ErrInvalidIntent):
		r.logger.Error("dropping invalid notification task", zap.String("task_id", task.ID), zap.Error(err))
		return nil
	default:
		return err
	}
}
