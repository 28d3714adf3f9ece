package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"job-match/internal/domain/match"
	"job-match/internal/domain/notification"
	"job-match/internal/infrastructure/channel"
	"job-match/internal/metrics"
	"job-match/internal/realtime"
	"job-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultChannelTimeout = 10 * time.Second

var errNoAddress = errors.New("no address for channel")

// Channels holds the adapters a worker fans out to. A nil adapter behaves
// as not configured.
type Channels struct {
	Email    channel.EmailSender
	Telegram channel.TelegramSender
	WhatsApp channel.WhatsAppSender
}

type MatchMarker interface {
	MarkNotified(ctx context.Context, keys []match.Key, at time.Time) (int64, error)
}

type WorkerDeps struct {
	Preferences repository.PreferenceRepository
	Logs        repository.NotificationLogRepository
	Matches     MatchMarker
	Channels    Channels
	Publisher   realtime.Publisher

	ChannelTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// Worker delivers one intent across its channels, records the attempt set
// and marks the intent's matches notified once no retry is due.
type Worker struct {
	prefs     repository.PreferenceRepository
	logs      repository.NotificationLogRepository
	matches   MatchMarker
	channels  Channels
	publisher realtime.Publisher
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics

	now func() time.Time
}

func NewWorker(d WorkerDeps) *Worker {
	w := &Worker{
		prefs:     d.Preferences,
		logs:      d.Logs,
		matches:   d.Matches,
		channels:  d.Channels,
		publisher: d.Publisher,
		timeout:   d.ChannelTimeout,
		logger:    d.Logger,
		metrics:   d.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if w.timeout <= 0 {
		w.timeout = DefaultChannelTimeout
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.publisher == nil {
		w.publisher = realtime.NoopPublisher{}
	}
	return w
}

func (w *Worker) Deliver(ctx context.Context, d notification.Delivery) (notification.Report, error) {
	intent := d.Intent
	if err := intent.Validate(); err != nil {
		return notification.Report{IntentID: intent.ID, Attempt: d.Attempt}, err
	}

	prefs, err := w.preferences(ctx, intent.Recipient)
	if err != nil {
		return notification.Report{IntentID: intent.ID, Attempt: d.Attempt}, err
	}

	subject, body, err := intent.Render()
	if err != nil {
		return notification.Report{IntentID: intent.ID, Attempt: d.Attempt}, fmt.Errorf("%w: %v", notification.ErrInvalidIntent, err)
	}

	targets := notification.Route(intent, prefs)
	attempts := w.fanOut(ctx, targets, subject, body)
	report := notification.NewReport(intent.ID, d.Attempt, attempts)

	if err := w.appendLog(ctx, intent, d.Attempt, attempts); err != nil {
		return report, err
	}

	if report.Retryable() && !d.Final() {
		report.Retry = true
		w.logger.Info("notification delivery will be retried",
			zap.String("intent_id", intent.ID),
			zap.Int("attempt", d.Attempt),
			zap.Int("max_attempts", d.MaxAttempts),
			zap.Int("failed", report.Failed),
		)
		return report, notification.ErrTransientDelivery
	}

	if len(intent.Matches) > 0 && w.matches != nil {
		n, err := w.matches.MarkNotified(ctx, intent.Matches, w.now())
		if err != nil {
			return report, fmt.Errorf("mark matches notified: %w", err)
		}
		report.MatchesNotified = int(n)
	}

	w.logger.Info("notification delivered",
		zap.String("intent_id", intent.ID),
		zap.Int("attempt", d.Attempt),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	w.publisher.Publish(ctx, realtime.ChannelNotifications, realtime.NewEvent(realtime.EventNotificationDelivered, report))
	return report, nil
}

func (w *Worker) preferences(ctx context.Context, r notification.Recipient) (*notification.Preferences, error) {
	if !r.HasUser() || w.prefs == nil {
		return nil, nil
	}
	p, ok, err := w.prefs.Get(ctx, r.UserID)
	if err != nil {
		return nil, fmt.Errorf("load notification preferences: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// fanOut calls every target concurrently; one channel never waits on or
// fails another. Results keep the order of targets.
func (w *Worker) fanOut(ctx context.Context, targets []notification.Target, subject, body string) []notification.ChannelAttempt {
	out := make([]notification.ChannelAttempt, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			out[i] = w.attempt(ctx, t, subject, body)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (w *Worker) attempt(ctx context.Context, t notification.Target, subject, body string) notification.ChannelAttempt {
	a := notification.ChannelAttempt{Channel: t.Channel}

	var err error
	if t.Address == "" {
		err = errNoAddress
	} else {
		cctx, cancel := context.WithTimeout(ctx, w.timeout)
		err = w.send(cctx, t, subject, body)
		cancel()
	}

	switch {
	case err == nil:
		a.Success = true
		w.metrics.ChannelAttempt(string(t.Channel), "success")
	case errors.Is(err, channel.ErrChannelNotConfigured), errors.Is(err, errNoAddress):
		a.Skipped = true
		a.Error = err.Error()
		w.metrics.ChannelAttempt(string(t.Channel), "skipped")
		w.logger.Debug("notification channel skipped", zap.String("channel", string(t.Channel)), zap.Error(err))
	default:
		a.Error = err.Error()
		a.Transient = channel.IsTransient(err)
		w.metrics.ChannelAttempt(string(t.Channel), "failed")
		w.logger.Warn("notification channel failed",
			zap.String("channel", string(t.Channel)),
			zap.Bool("transient", a.Transient),
			zap.Error(err),
		)
	}
	return a
}

func (w *Worker) send(ctx context.Context, t notification.Target, subject, body string) error {
	switch t.Channel {
	case notification.ChannelEmail:
		if w.channels.Email == nil {
			return channel.ErrChannelNotConfigured
		}
		return w.channels.Email.SendEmail(ctx, t.Address, subject, body)
	case notification.ChannelTelegram:
		if w.channels.Telegram == nil {
			return channel.ErrChannelNotConfigured
		}
		return w.channels.Telegram.SendTelegram(ctx, t.Address, textMessage(subject, body))
	case notification.ChannelWhatsApp:
		if w.channels.WhatsApp == nil {
			return channel.ErrChannelNotConfigured
		}
		return w.channels.WhatsApp.SendWhatsApp(ctx, t.Address, textMessage(subject, body))
	default:
		return channel.ErrChannelNotConfigured
	}
}

// textMessage folds the subject into chat channels that have no subject line.
func textMessage(subject, body string) string {
	if subject == "" {
		return body
	}
	if body == "" {
		return subject
	}
	return subject + "\n\n" + body
}

func (w *Worker) appendLog(ctx context.Context, intent notification.Intent, attempt int, attempts []notification.ChannelAttempt) error {
	if w.logs == nil {
		return nil
	}
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	entry := notification.LogEntry{
		ID:        uuid.New(),
		IntentID:  intent.ID,
		Payload:   payload,
		Attempts:  attempts,
		Attempt:   attempt,
		CreatedAt: w.now(),
	}
	if intent.Recipient.HasUser() {
		id := intent.Recipient.UserID
		entry.RecipientID = &id
	}
	if err := w.logs.Append(ctx, entry); err != nil {
		return fmt.Errorf("append notification log: %w", err)
	}
	return nil
}
