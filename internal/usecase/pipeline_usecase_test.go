package usecase

import (
	"context"
	"errors"
	"testing"

	"job-match/internal/domain"
	"job-match/internal/infrastructure/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type staticStats struct {
	stats queue.Stats
	err   error
}

func (s staticStats) Stats(context.Context) (queue.Stats, error) { return s.stats, s.err }

func TestPipeline_GetStatus(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("down") })

	uc := NewPipelineUsecase(ok, down, staticStats{stats: queue.Stats{StreamLength: 3, Pending: 1, RetryScheduled: 2}}, "text-embedding-004")
	st, err := uc.GetStatus(context.Background())
	require.NoError(t, err)

	assert.True(t, st.DatabaseHealthy)
	assert.False(t, st.RedisHealthy)
	assert.Equal(t, "text-embedding-004", st.EmbeddingProvider)
	assert.Equal(t, domain.DeliveryQueued, st.DeliveryMode)
	require.NotNil(t, st.Queue)
	assert.Equal(t, int64(3), st.Queue.StreamLength)
	assert.Equal(t, int64(2), st.Queue.RetryScheduled)
}

func TestPipeline_GetStatus_NoBroker(t *testing.T) {
	st, err := NewPipelineUsecase(nil, nil, nil, "").GetStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, st.DatabaseHealthy)
	assert.Equal(t, domain.DeliveryInline, st.DeliveryMode)
	assert.Nil(t, st.Queue)
}
