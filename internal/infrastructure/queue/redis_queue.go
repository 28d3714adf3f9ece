package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"job-match/internal/domain/notification"
	"job-match/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const taskField = "task"

// Task is the queued envelope of one notification intent.
type Task struct {
	ID          string              `json:"id"`
	Intent      notification.Intent `json:"intent"`
	Attempt     int                 `json:"attempt"`
	MaxAttempts int                 `json:"max_attempts"`
	EnqueuedAt  time.Time           `json:"enqueued_at"`
}

func (t Task) Delivery() notification.Delivery {
	return notification.Delivery{Intent: t.Intent, Attempt: t.Attempt, MaxAttempts: t.MaxAttempts}
}

type Handler func(ctx context.Context, task Task) error

type Config struct {
	Stream         string
	Group          string
	RetryKey       string
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	ClaimMinIdle   time.Duration
	Block          time.Duration
	BatchSize      int64
	PromoteEvery   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Stream == "" {
		c.Stream = "notifications"
	}
	if c.Group == "" {
		c.Group = "notification-workers"
	}
	if c.RetryKey == "" {
		c.RetryKey = c.Stream + ":retry"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = time.Minute
	}
	if c.ClaimMinIdle <= 0 {
		c.ClaimMinIdle = 5 * time.Minute
	}
	if c.Block == 0 {
		c.Block = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.PromoteEvery <= 0 {
		c.PromoteEvery = 500 * time.Millisecond
	}
	return c
}

// promoteScript moves due retries back onto the stream in one step, so a
// task is promoted once even with many workers running the promoter.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(due) do
	redis.call('ZREM', KEYS[1], member)
	redis.call('XADD', KEYS[2], '*', 'task', member)
end
return #due
`)

type RedisQueue struct {
	client  *redis.Client
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRedisQueue(client *redis.Client, cfg Config, logger *zap.Logger, m *metrics.Metrics) *RedisQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{
		client:  client,
		cfg:     cfg.withDefaults(),
		logger:  logger.Named("queue"),
		metrics: m,
		now:     time.Now,
	}
}

func (q *RedisQueue) Config() Config {
	return q.cfg
}

// Enqueue appends intent as a first attempt.
func (q *RedisQueue) Enqueue(ctx context.Context, intent notification.Intent) (Task, error) {
	intent = intent.WithID()
	task := Task{
		ID:          intent.ID,
		Intent:      intent,
		Attempt:     1,
		MaxAttempts: q.cfg.MaxAttempts,
		EnqueuedAt:  q.now().UTC(),
	}
	b, err := json.Marshal(task)
	if err != nil {
		return Task{}, fmt.Errorf("encode task: %w", err)
	}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: map[string]any{taskField: b},
	}).Err(); err != nil {
		return Task{}, fmt.Errorf("enqueue task: %w", err)
	}
	return task, nil
}

func (q *RedisQueue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Consume runs until ctx is done, handling one task at a time. Due retries
// are promoted and stale pending entries reclaimed between reads.
func (q *RedisQueue) Consume(ctx context.Context, consumer string, h Handler) error {
	if err := q.EnsureGroup(ctx); err != nil {
		return err
	}

	promote := time.NewTicker(q.cfg.PromoteEvery)
	defer promote.Stop()
	reclaim := time.NewTicker(q.cfg.ClaimMinIdle / 2)
	defer reclaim.Stop()

	q.logger.Info("consumer started", zap.String("consumer", consumer), zap.String("stream", q.cfg.Stream))
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("consumer stopped", zap.String("consumer", consumer))
			return nil
		case <-promote.C:
			if _, err := q.PromoteDue(ctx); err != nil && ctx.Err() == nil {
				q.logger.Warn("promote retries failed", zap.Error(err))
			}
			continue
		case <-reclaim.C:
			if _, err := q.reclaim(ctx, consumer, h); err != nil && ctx.Err() == nil {
				q.logger.Warn("reclaim pending failed", zap.Error(err))
			}
			continue
		default:
		}

		if _, err := q.poll(ctx, consumer, h); err != nil {
			if ctx.Err() != nil {
				continue
			}
			q.logger.Warn("read stream failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (q *RedisQueue) poll(ctx context.Context, consumer string, h Handler) (int, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    q.cfg.BatchSize,
		Block:    q.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			q.handle(ctx, msg, h)
			n++
		}
	}
	return n, nil
}

// reclaim takes over entries left pending by a consumer that died mid-task.
// Every earlier delivery of an entry counts as a spent attempt, so a task
// that keeps killing its worker is abandoned after MaxAttempts runs.
func (q *RedisQueue) reclaim(ctx context.Context, consumer string, h Handler) (int, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Consumer: consumer,
		MinIdle:  q.cfg.ClaimMinIdle,
		Start:    "0-0",
		Count:    q.cfg.BatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	deliveries, err := q.deliveryCounts(ctx, msgs)
	if err != nil {
		return 0, err
	}

	for _, msg := range msgs {
		task, err := decodeTask(msg)
		if err != nil {
			q.logger.Error("dropping undecodable task", zap.String("message_id", msg.ID), zap.Error(err))
			q.ack(ctx, msg.ID)
			continue
		}
		if n := deliveries[msg.ID]; n > 1 {
			task.Attempt += int(n - 1)
		}
		log := q.logger.With(
			zap.String("message_id", msg.ID),
			zap.String("task_id", task.ID),
			zap.Int("attempt", task.Attempt),
			zap.Int("max_attempts", task.MaxAttempts),
		)
		if task.Attempt > task.MaxAttempts {
			q.metrics.TaskAbandoned()
			log.Error("task abandoned after repeated redelivery")
			q.ack(ctx, msg.ID)
			continue
		}
		log.Info("reclaimed stale task")
		q.process(ctx, msg.ID, task, h)
	}
	return len(msgs), nil
}

// deliveryCounts reads how many times each entry has been handed out.
func (q *RedisQueue) deliveryCounts(ctx context.Context, msgs []redis.XMessage) (map[string]int64, error) {
	cmds := make([]*redis.XPendingExtCmd, len(msgs))
	_, _ = q.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, msg := range msgs {
			cmds[i] = p.XPendingExt(ctx, &redis.XPendingExtArgs{
				Stream: q.cfg.Stream,
				Group:  q.cfg.Group,
				Start:  msg.ID,
				End:    msg.ID,
				Count:  1,
			})
		}
		return nil
	})

	out := make(map[string]int64, len(msgs))
	for i, cmd := range cmds {
		pending, err := cmd.Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("read delivery count: %w", err)
		}
		if len(pending) > 0 {
			out[msgs[i].ID] = pending[0].RetryCount
		}
	}
	return out, nil
}

func (q *RedisQueue) handle(ctx context.Context, msg redis.XMessage, h Handler) {
	task, err := decodeTask(msg)
	if err != nil {
		q.logger.Error("dropping undecodable task", zap.String("message_id", msg.ID), zap.Error(err))
		q.ack(ctx, msg.ID)
		return
	}
	q.process(ctx, msg.ID, task, h)
}

func (q *RedisQueue) process(ctx context.Context, msgID string, task Task, h Handler) {
	log := q.logger.With(
		zap.String("task_id", task.ID),
		zap.Int("attempt", task.Attempt),
		zap.Int("max_attempts", task.MaxAttempts),
	)

	if err := h(ctx, task); err != nil {
		if task.Attempt < task.MaxAttempts {
			delay := BackoffDelay(q.cfg.BackoffInitial, q.cfg.BackoffMax, task.Attempt)
			if serr := q.scheduleRetry(ctx, msgID, task, delay); serr != nil {
				// Left pending; reclaim redelivers it.
				log.Error("schedule retry failed", zap.Error(serr))
				return
			}
			q.metrics.TaskRetried()
			log.Warn("task failed, retry scheduled", zap.Duration("delay", delay), zap.Error(err))
			return
		}
		q.metrics.TaskAbandoned()
		log.Error("task abandoned after final attempt", zap.Error(err))
	}
	q.ack(ctx, msgID)
}

func (q *RedisQueue) scheduleRetry(ctx context.Context, msgID string, task Task, delay time.Duration) error {
	task.Attempt++
	b, err := json.Marshal(task)
	if err != nil {
		return err
	}
	due := q.now().Add(delay)

	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, q.cfg.RetryKey, redis.Z{Score: float64(due.UnixMilli()), Member: string(b)})
		p.XAck(ctx, q.cfg.Stream, q.cfg.Group, msgID)
		p.XDel(ctx, q.cfg.Stream, msgID)
		return nil
	})
	return err
}

func (q *RedisQueue) ack(ctx context.Context, msgID string) {
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.XAck(ctx, q.cfg.Stream, q.cfg.Group, msgID)
		p.XDel(ctx, q.cfg.Stream, msgID)
		return nil
	})
	if err != nil {
		q.logger.Warn("ack failed", zap.String("message_id", msgID), zap.Error(err))
	}
}

// PromoteDue moves retries whose backoff elapsed back onto the stream.
func (q *RedisQueue) PromoteDue(ctx context.Context) (int, error) {
	n, err := promoteScript.Run(ctx, q.client,
		[]string{q.cfg.RetryKey, q.cfg.Stream},
		q.now().UnixMilli(), q.cfg.BatchSize,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("promote retries: %w", err)
	}
	return n, nil
}

type Stats struct {
	StreamLength   int64 `json:"stream_length"`
	Pending        int64 `json:"pending"`
	RetryScheduled int64 `json:"retry_scheduled"`
}

func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error
	if s.StreamLength, err = q.client.XLen(ctx, q.cfg.Stream).Result(); err != nil {
		return Stats{}, err
	}
	if s.RetryScheduled, err = q.client.ZCard(ctx, q.cfg.RetryKey).Result(); err != nil {
		return Stats{}, err
	}
	pending, err := q.client.XPending(ctx, q.cfg.Stream, q.cfg.Group).Result()
	if err != nil && !strings.Contains(err.Error(), "NOGROUP") {
		return Stats{}, err
	}
	if pending != nil {
		s.Pending = pending.Count
	}
	return s, nil
}

// BackoffDelay is the wait before retrying after the given failed attempt:
// initial, 2x initial, 4x initial and so on, capped at max.
func BackoffDelay(initial, max time.Duration, attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Reset()

	d := initial
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

func decodeTask(msg redis.XMessage) (Task, error) {
	raw, ok := msg.Values[taskField]
	if !ok {
		return Task{}, fmt.Errorf("message has no %q field", taskField)
	}
	var b []byte
	switch v := raw.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return Task{}, fmt.Errorf("unexpected task field type %T", raw)
	}

	var t Task
	if err := json.Unmarshal(b, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if t.Attempt <= 0 {
		t.Attempt = 1
	}
	if t.MaxAttempts <= 0 {
		t.MaxAttempts = 1
	}
	return t, nil
}
