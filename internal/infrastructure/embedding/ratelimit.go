package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// WithRateLimit makes p wait for a token before each call. Non-positive rps
// returns p unchanged.
func WithRateLimit(p Provider, rps float64, burst int) Provider {
	if p == nil || rps <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &limitedProvider{next: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

type limitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

func (l *limitedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return l.next.Embed(ctx, text)
}

func (l *limitedProvider) ModelName() string {
	return l.next.ModelName()
}
