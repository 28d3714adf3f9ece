package app

import (
	"context"
	"errors"
	"os"
	"time"

	"job-match/internal/config"
	dbpostgres "job-match/internal/database/postgres"
	"job-match/internal/infrastructure/cache"
	"job-match/internal/infrastructure/channel"
	embedder "job-match/internal/infrastructure/embedding"
	"job-match/internal/infrastructure/queue"
	"job-match/internal/metrics"
	"job-match/internal/realtime"
	"job-match/internal/repository"
	"job-match/internal/usecase"
	notifyuc "job-match/internal/usecase/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Container owns every long-lived dependency. Redis and the embedding
// provider are optional; their absence is logged once and the container
// degrades instead of failing.
type Container struct {
	Config   config.Config
	Logger   *zap.Logger
	DB       *dbpostgres.Pool
	Redis    *cache.Redis
	Queue    *queue.RedisQueue
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Publisher  realtime.Publisher
	Subscriber realtime.Subscriber
	Provider   embedder.Provider

	Jobs    *repository.PostgresJobRepository
	Matches *repository.PostgresJobMatchRepository

	Worker     *notifyuc.Worker
	Dispatcher notifyuc.Dispatcher
	Notifier   *notifyuc.MatchNotifier
	Matching   *usecase.Matching
	Pipeline   *usecase.Pipeline
}

func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(connectCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Metrics:  m,
		Gatherer: reg,
	}

	c.Redis = cache.NewRedis(ctx, cfg.Redis, logger.Named("redis"))
	client := c.Redis.Client()
	if client != nil {
		c.Queue = queue.NewRedisQueue(client, queueConfig(cfg.Notification), logger, m)
		c.Subscriber = realtime.NewRedisSubscriber(client)
	}
	c.Publisher = realtime.NewPublisher(client, logger, m)

	provider, err := newProvider(ctx, cfg.Embedding)
	switch {
	case errors.Is(err, embedder.ErrUnavailable):
		logger.Warn("GEMINI_API_KEY not set, embedding triggers will fail")
	case err != nil:
		_ = c.Close()
		return nil, err
	default:
		c.Provider = provider
	}

	c.Jobs = repository.NewPostgresJobRepository(db)
	c.Matches = repository.NewPostgresJobMatchRepository(db)

	c.Worker = notifyuc.NewWorker(notifyuc.WorkerDeps{
		Preferences: repository.NewPostgresPreferenceRepository(db),
		Logs:        repository.NewPostgresNotificationLogRepository(db),
		Matches:     c.Matches,
		Channels: notifyuc.Channels{
			Email:    channel.NewSMTPSender(cfg.Channels.SMTP),
			Telegram: channel.NewTelegramBot(cfg.Channels.Telegram, nil),
			WhatsApp: channel.NewTwilioWhatsApp(cfg.Channels.Twilio, nil),
		},
		Publisher:      c.Publisher,
		ChannelTimeout: cfg.Notification.ChannelTimeout,
		Logger:         logger.Named("worker"),
		Metrics:        m,
	})
	c.Dispatcher = notifyuc.NewDispatcher(c.Queue, c.Worker, c.Publisher, logger.Named("dispatcher"), m)
	c.Notifier = notifyuc.NewMatchNotifier(notifyuc.MatchNotifierDeps{
		Dispatcher: c.Dispatcher,
		Matches:    c.Matches,
		Jobs:       c.Jobs,
		Locker:     c.Redis,
		LockTTL:    cfg.Notification.PendingLockTTL,
		Logger:     logger.Named("notifier"),
	})

	c.Matching = usecase.NewMatchingUsecase(usecase.MatchingDeps{
		Jobs:      c.Jobs,
		Resumes:   repository.NewPostgresResumeRepository(db),
		Vectors:   repository.NewPostgresVectorRepository(db),
		Matches:   c.Matches,
		Provider:  c.Provider,
		Notifier:  c.Notifier,
		Publisher: c.Publisher,
		PageSize:  cfg.Matching.PageSize,
		Logger:    logger.Named("matching"),
		Metrics:   m,
	})

	var redisPing usecase.Pinger
	if c.Redis.Available() {
		redisPing = c.Redis
	}
	var stats usecase.QueueStatter
	if c.Queue != nil {
		stats = c.Queue
	}
	model := ""
	if c.Provider != nil {
		model = c.Provider.ModelName()
	}
	c.Pipeline = usecase.NewPipelineUsecase(db, redisPing, stats, model)

	return c, nil
}

func newProvider(ctx context.Context, cfg config.EmbeddingConfig) (embedder.Provider, error) {
	gemini, err := embedder.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	var p embedder.Provider = gemini
	p = embedder.WithRateLimit(p, cfg.RPS, cfg.Burst)
	p = embedder.WithLRUCache(p, cfg.CacheSize, cfg.CacheTTL)
	return p, nil
}

func queueConfig(cfg config.NotificationConfig) queue.Config {
	return queue.Config{
		Stream:         cfg.Stream,
		Group:          cfg.Group,
		RetryKey:       cfg.RetryKey,
		MaxAttempts:    cfg.MaxAttempts,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
		ClaimMinIdle:   cfg.ClaimMinIdle,
	}
}

// NewRunner returns nil when no broker is configured.
func (c *Container) NewRunner() *notifyuc.Runner {
	if c == nil || c.Queue == nil {
		return nil
	}
	return notifyuc.NewRunner(c.Queue, c.Worker, consumerName(), c.Logger.Named("runner"))
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "-" + time.Now().UTC().Format("150405")
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if p, ok := c.Publisher.(*realtime.RedisPublisher); ok {
		p.Wait()
	}
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
