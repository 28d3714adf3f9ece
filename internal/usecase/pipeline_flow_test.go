package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"job-match/internal/domain/notification"
	"job-match/internal/infrastructure/cache"
	"job-match/internal/infrastructure/queue"
	"job-match/internal/repository"
	notifyuc "job-match/internal/usecase/notification"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A new job matches R1 (0.9) and not R2 (0.4); the queued notification is
// delivered by a worker and R1's match ends up notified.
func TestEmbedMatchNotify_QueuedEndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r1, r2, jobID := uuid.New(), uuid.New(), uuid.New()

	f := newMatchingFixture(t)
	f.jobs.docs[jobID] = repository.JobDocument{ID: jobID, Title: "Backend Engineer", Company: "Acme", Location: "Jakarta"}
	f.vectors.putResume(r1, unitAt(0.9)...)
	f.vectors.putResume(r2, unitAt(0.4)...)

	email := &recordingEmail{}
	logs := &fakeLogs{}
	worker := notifyuc.NewWorker(notifyuc.WorkerDeps{
		Preferences: &fakePrefs{prefs: map[uuid.UUID]notification.Preferences{
			r1: {UserID: r1, Email: "r1@example.com", EmailEnabled: true},
			r2: {UserID: r2, Email: "r2@example.com", EmailEnabled: true},
		}},
		Logs:     logs,
		Matches:  f.matches,
		Channels: notifyuc.Channels{Email: email},
	})

	q := queue.NewRedisQueue(client, queue.Config{Block: -1, PromoteEvery: 10 * time.Millisecond}, nil, nil)
	dispatcher := notifyuc.NewDispatcher(q, worker, nil, nil, nil)
	f.uc.notifier = notifyuc.NewMatchNotifier(notifyuc.MatchNotifierDeps{
		Dispatcher: dispatcher,
		Matches:    f.matches,
		Jobs:       f.jobs,
		Locker:     cache.FromClient(client, nil),
	})

	res, err := f.uc.EmbedAndMatchJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchCount)
	assert.Equal(t, 1, res.NotificationsQueued)
	assert.Equal(t, 0, res.NotificationsInline)

	m, ok := f.matches.get(r1, jobID)
	require.True(t, ok)
	assert.Equal(t, 90, m.MatchScore)
	assert.False(t, m.Notified, "queued delivery has not run yet")
	_, ok = f.matches.get(r2, jobID)
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = notifyuc.NewRunner(q, worker, "test-worker", nil).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		m, _ := f.matches.get(r1, jobID)
		return m.Notified
	}, 3*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()

	assert.Equal(t, []string{"r1@example.com|New job match: Backend Engineer"}, email.all())
	entries := logs.all()
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempt)
	require.NotNil(t, entries[0].RecipientID)
	assert.Equal(t, r1, *entries[0].RecipientID)

	// A rerun finds the match already notified and sends nothing new.
	res, err = f.uc.EmbedAndMatchJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.True(t, res.EmbeddingReused)
	assert.Equal(t, 0, res.NotificationsQueued)
}

func TestEmbedMatchNotify_InlineWithoutBroker(t *testing.T) {
	userID, jobID := uuid.New(), uuid.New()

	f := newMatchingFixture(t)
	f.jobs.docs[jobID] = repository.JobDocument{ID: jobID, Title: "Data Engineer"}
	f.vectors.putResume(userID, unitAt(0.8)...)

	email := &recordingEmail{}
	worker := notifyuc.NewWorker(notifyuc.WorkerDeps{
		Preferences: &fakePrefs{prefs: map[uuid.UUID]notification.Preferences{
			userID: {UserID: userID, Email: "dev@example.com", EmailEnabled: true},
		}},
		Logs:     &fakeLogs{},
		Matches:  f.matches,
		Channels: notifyuc.Channels{Email: email},
	})
	f.uc.notifier = notifyuc.NewMatchNotifier(notifyuc.MatchNotifierDeps{
		Dispatcher: notifyuc.NewDispatcher(nil, worker, nil, nil, nil),
		Matches:    f.matches,
		Jobs:       f.jobs,
		Locker:     cache.FromClient(nil, nil),
	})

	res, err := f.uc.EmbedAndMatchJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NotificationsInline)
	assert.Equal(t, 0, res.NotificationsQueued)

	m, _ := f.matches.get(userID, jobID)
	assert.True(t, m.Notified)
	assert.Len(t, email.all(), 1)
}
