package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// WithLRUCache fronts p with an in-process expirable LRU keyed by model and
// text. Non-positive size or ttl returns p unchanged.
func WithLRUCache(p Provider, size int, ttl time.Duration) Provider {
	if p == nil || size <= 0 || ttl <= 0 {
		return p
	}
	return &lruProvider{
		next:  p,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruProvider struct {
	next  Provider
	cache *expirable.LRU[string, []float32]
}

func (l *lruProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(l.next.ModelName(), text)
	if cached, ok := l.cache.Get(key); ok {
		return cloneVector(cached), nil
	}
	res, err := l.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneVector(res))
	return res, nil
}

func (l *lruProvider) ModelName() string {
	return l.next.ModelName()
}

func cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(h[:])
}
