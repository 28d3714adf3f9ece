package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"job-match/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("redis unavailable")

// Redis is the optional broker handle. When no address is configured or the
// server does not answer at startup, Client returns nil and every helper
// degrades to a no-op.
type Redis struct {
	client *redis.Client
	logger *zap.Logger

	warnedUnavailable atomic.Bool
}

func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled() {
		logger.Info("redis not configured, running without broker")
		return &Redis{logger: logger}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, running without broker", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return &Redis{logger: logger}
	}

	return &Redis{client: client, logger: logger}
}

// FromClient wraps an existing client.
func FromClient(client *redis.Client, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, logger: logger}
}

func (r *Redis) Available() bool {
	return r != nil && r.client != nil
}

func (r *Redis) Client() *redis.Client {
	if r == nil {
		return nil
	}
	return r.client
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r == nil || r.logger == nil {
		return
	}
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Warn("redis command failed", zap.Error(err))
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if !r.Available() {
		return ErrUnavailable
	}
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if !r.Available() {
		return nil
	}
	return r.client.Close()
}

// SetIfNotExists reports whether key was created. Without a broker it
// always grants the key.
func (r *Redis) SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	if !r.Available() {
		return true, nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		r.warnUnavailableOnce(err)
		return false, err
	}
	return ok, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if !r.Available() {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}
