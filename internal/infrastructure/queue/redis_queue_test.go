package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"job-match/internal/domain/notification"
	"job-match/internal/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func newTestQueue(t *testing.T, cfg Config) (*RedisQueue, *miniredis.Miniredis, *testClock, *metrics.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if cfg.Block == 0 {
		cfg.Block = -1
	}
	m := metrics.New(prometheus.NewRegistry())
	q := NewRedisQueue(client, cfg, nil, m)
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	q.now = clock.now
	require.NoError(t, q.EnsureGroup(context.Background()))
	return q, mr, clock, m
}

func sampleIntent() notification.Intent {
	return notification.Intent{
		Recipient: notification.Recipient{UserID: uuid.New()},
		Body:      "hello",
	}
}

func TestRedisQueue_EnqueueAndPoll(t *testing.T) {
	q, _, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	task, err := q.Enqueue(ctx, sampleIntent())
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, 1, task.Attempt)
	assert.Equal(t, 3, task.MaxAttempts)

	var got []Task
	n, err := q.poll(ctx, "w1", func(_ context.Context, tk Task) error {
		got = append(got, tk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, got, 1)
	assert.Equal(t, task.ID, got[0].ID)
	assert.Equal(t, "hello", got[0].Intent.Body)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestRedisQueue_PollEmpty(t *testing.T) {
	q, _, _, _ := newTestQueue(t, Config{})
	n, err := q.poll(context.Background(), "w1", func(context.Context, Task) error {
		t.Fatal("handler must not run")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisQueue_FailedTaskIsRetriedWithBackoff(t *testing.T) {
	q, _, clock, m := newTestQueue(t, Config{})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, sampleIntent())
	require.NoError(t, err)

	var attempts []int
	handler := func(_ context.Context, tk Task) error {
		attempts = append(attempts, tk.Attempt)
		return notification.ErrTransientDelivery
	}

	_, err = q.poll(ctx, "w1", handler)
	require.NoError(t, err)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.StreamLength)
	assert.Equal(t, int64(0), stats.Pending)
	assert.Equal(t, int64(1), stats.RetryScheduled)

	n, err := q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "retry is not due before its backoff elapses")

	clock.t = clock.t.Add(time.Second)
	n, err = q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = q.poll(ctx, "w1", handler)
	require.NoError(t, err)

	clock.t = clock.t.Add(1500 * time.Millisecond)
	n, err = q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second retry waits two seconds")

	clock.t = clock.t.Add(500 * time.Millisecond)
	n, err = q.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = q.poll(ctx, "w1", handler)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, attempts)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats, "exhausted task leaves nothing behind")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksRetried))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksAbandoned))
}

func TestRedisQueue_SucceedsOnRetry(t *testing.T) {
	q, _, clock, m := newTestQueue(t, Config{MaxAttempts: 3})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, sampleIntent())
	require.NoError(t, err)

	calls := 0
	handler := func(context.Context, Task) error {
		calls++
		if calls == 1 {
			return errors.New("smtp timeout")
		}
		return nil
	}

	_, err = q.poll(ctx, "w1", handler)
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Second)
	_, err = q.PromoteDue(ctx)
	require.NoError(t, err)
	_, err = q.poll(ctx, "w1", handler)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksAbandoned))
}

func TestRedisQueue_UndecodableTaskIsDropped(t *testing.T) {
	q, mr, _, _ := newTestQueue(t, Config{})
	ctx := context.Background()

	_, err := mr.XAdd(q.cfg.Stream, "*", []string{taskField, "{not json"})
	require.NoError(t, err)

	n, err := q.poll(ctx, "w1", func(context.Context, Task) error {
		t.Fatal("handler must not run")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Pending)
}

// readWithoutAck takes the next entry as consumer and leaves it pending,
// the way a worker that dies mid-task does.
func readWithoutAck(t *testing.T, q *RedisQueue, consumer string) string {
	t.Helper()
	streams, err := q.client.XReadGroup(context.Background(), &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    1,
		Block:    -1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Len(t, streams[0].Messages, 1)
	return streams[0].Messages[0].ID
}

func TestRedisQueue_ReclaimRedeliversStaleTask(t *testing.T) {
	q, mr, _, m := newTestQueue(t, Config{ClaimMinIdle: time.Minute})
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	task, err := q.Enqueue(ctx, sampleIntent())
	require.NoError(t, err)
	readWithoutAck(t, q, "worker-a")

	n, err := q.reclaim(ctx, "worker-b", func(context.Context, Task) error {
		t.Fatal("entry is not idle long enough to reclaim")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, n)

	mr.SetTime(start.Add(time.Minute + time.Second))
	var got []Task
	n, err = q.reclaim(ctx, "worker-b", func(_ context.Context, tk Task) error {
		got = append(got, tk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, got, 1)
	assert.Equal(t, task.ID, got[0].ID)
	assert.Equal(t, 2, got[0].Attempt, "the interrupted delivery counts as an attempt")

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksAbandoned))
}

func TestRedisQueue_ReclaimFailureOnFinalAttemptIsAbandoned(t *testing.T) {
	q, mr, _, m := newTestQueue(t, Config{MaxAttempts: 2, ClaimMinIdle: time.Minute})
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	_, err := q.Enqueue(ctx, sampleIntent())
	require.NoError(t, err)
	readWithoutAck(t, q, "worker-a")

	mr.SetTime(start.Add(2 * time.Minute))
	calls := 0
	n, err := q.reclaim(ctx, "worker-b", func(_ context.Context, tk Task) error {
		calls++
		assert.Equal(t, 2, tk.Attempt)
		return notification.ErrTransientDelivery
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats, "no retry is scheduled past the last attempt")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksAbandoned))
}

func TestRedisQueue_ReclaimAbandonsRepeatedlyCrashingTask(t *testing.T) {
	q, mr, _, m := newTestQueue(t, Config{MaxAttempts: 2, ClaimMinIdle: time.Minute})
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	_, err := q.Enqueue(ctx, sampleIntent())
	require.NoError(t, err)
	id := readWithoutAck(t, q, "worker-a")

	// worker-b takes it over and dies as well.
	mr.SetTime(start.Add(2 * time.Minute))
	require.NoError(t, q.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Consumer: "worker-b",
		MinIdle:  time.Minute,
		Messages: []string{id},
	}).Err())

	mr.SetTime(start.Add(4 * time.Minute))
	n, err := q.reclaim(ctx, "worker-c", func(context.Context, Task) error {
		t.Fatal("task past its last attempt must not run again")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksAbandoned))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksRetried))
}

func TestRedisQueue_EnsureGroupIsIdempotent(t *testing.T) {
	q, _, _, _ := newTestQueue(t, Config{})
	assert.NoError(t, q.EnsureGroup(context.Background()))
}

func TestRedisQueue_ConsumeStopsOnCancel(t *testing.T) {
	q, _, _, _ := newTestQueue(t, Config{Block: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	handled := make(chan string, 1)
	go func() {
		defer close(done)
		_ = q.Consume(ctx, "w1", func(_ context.Context, tk Task) error {
			handled <- tk.ID
			return nil
		})
	}()

	task, err := q.Enqueue(context.Background(), sampleIntent())
	require.NoError(t, err)

	select {
	case id := <-handled:
		assert.Equal(t, task.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not consumed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, BackoffDelay(time.Second, time.Minute, 1))
	assert.Equal(t, 2*time.Second, BackoffDelay(time.Second, time.Minute, 2))
	assert.Equal(t, 4*time.Second, BackoffDelay(time.Second, time.Minute, 3))
	assert.Equal(t, 5*time.Second, BackoffDelay(time.Second, 5*time.Second, 6))
}
