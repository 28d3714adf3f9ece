package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

var ErrNoBroker = errors.New("realtime broker not configured")

type Subscription interface {
	// Messages yields raw event payloads. The channel is closed after Close.
	Messages() <-chan string
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
}

type RedisSubscriber struct {
	client *redis.Client
}

func NewRedisSubscriber(client *redis.Client) *RedisSubscriber {
	return &RedisSubscriber{client: client}
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if s == nil || s.client == nil {
		return nil, ErrNoBroker
	}
	if len(channels) == 0 {
		return nil, errors.New("subscribe: no channels")
	}

	ps := s.client.Subscribe(ctx, channels...)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := &redisSubscription{ps: ps, out: make(chan string, 64), done: make(chan struct{})}
	go sub.forward()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	out  chan string
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.out)
	for msg := range s.ps.Channel() {
		select {
		case s.out <- msg.Payload:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan string {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
