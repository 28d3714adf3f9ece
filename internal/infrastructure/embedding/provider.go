package embedding

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider turns text into a vector. Implementations are network bound and
// may be rate limited by the remote side.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

func cloneVector(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float32, len(values))
	copy(out, values)
	return out
}
