package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int32
	err   error
}

func (p *countingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (p *countingProvider) ModelName() string { return "test-model" }

func TestWithLRUCache_HitsSkipProvider(t *testing.T) {
	base := &countingProvider{}
	p := WithLRUCache(base, 8, time.Minute)

	v1, err := p.Embed(context.Background(), "golang")
	require.NoError(t, err)
	v1[0] = 999

	v2, err := p.Embed(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 1}, v2, "cached vector must not alias caller slices")
	assert.Equal(t, int32(1), base.calls.Load())

	_, err = p.Embed(context.Background(), "rust")
	require.NoError(t, err)
	assert.Equal(t, int32(2), base.calls.Load())
}

func TestWithLRUCache_ErrorsAreNotCached(t *testing.T) {
	base := &countingProvider{err: errors.New("quota")}
	p := WithLRUCache(base, 8, time.Minute)

	_, err := p.Embed(context.Background(), "x")
	require.Error(t, err)
	_, err = p.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(2), base.calls.Load())
}

func TestWithLRUCache_DisabledReturnsProvider(t *testing.T) {
	base := &countingProvider{}
	assert.Same(t, Provider(base), WithLRUCache(base, 0, time.Minute))
	assert.Nil(t, WithLRUCache(nil, 8, time.Minute))
}

func TestWithRateLimit_HonoursContext(t *testing.T) {
	base := &countingProvider{}
	p := WithRateLimit(base, 0.001, 1)

	_, err := p.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Embed(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, int32(1), base.calls.Load())
	assert.Equal(t, "test-model", p.ModelName())
}

func TestNewGemini_NoKey(t *testing.T) {
	_, err := NewGemini(context.Background(), " ", "text-embedding-004", time.Second)
	assert.ErrorIs(t, err, ErrUnavailable)
}
