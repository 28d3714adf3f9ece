package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"job-match/internal/domain/match"
	"job-match/internal/domain/notification"
	"job-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultPendingLockTTL = 15 * time.Minute

type PendingMatchLister interface {
	ListUnnotified(ctx context.Context, limit int) ([]match.JobMatch, error)
}

// Locker is the broker-side in-flight guard. Without a broker every key is
// granted.
type Locker interface {
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type NotifyResult struct {
	Scanned int `json:"scanned"`
	Queued  int `json:"queued"`
	Inline  int `json:"inline"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type MatchNotifierDeps struct {
	Dispatcher Dispatcher
	Matches    PendingMatchLister
	Jobs       repository.JobRepository
	Locker     Locker
	LockTTL    time.Duration
	Logger     *zap.Logger
}

// MatchNotifier turns unnotified matches into job_match intents.
type MatchNotifier struct {
	dispatcher Dispatcher
	matches    PendingMatchLister
	jobs       repository.JobRepository
	locker     Locker
	lockTTL    time.Duration
	logger     *zap.Logger
}

func NewMatchNotifier(d MatchNotifierDeps) *MatchNotifier {
	n := &MatchNotifier{
		dispatcher: d.Dispatcher,
		matches:    d.Matches,
		jobs:       d.Jobs,
		locker:     d.Locker,
		lockTTL:    d.LockTTL,
		logger:     d.Logger,
	}
	if n.lockTTL <= 0 {
		n.lockTTL = DefaultPendingLockTTL
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	return n
}

func PendingKey(k match.Key) string {
	return fmt.Sprintf("notify:pending:%s:%s", k.UserID, k.JobID)
}

// NotifyMatches dispatches one intent per unnotified match. Matches that
// already have an intent in flight are skipped.
func (n *MatchNotifier) NotifyMatches(ctx context.Context, matches []match.JobMatch) (NotifyResult, error) {
	res := NotifyResult{Scanned: len(matches)}
	jobs := make(map[uuid.UUID]*repository.JobDocument)

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if m.Notified {
			res.Skipped++
			continue
		}

		key := PendingKey(m.Key())
		if !n.acquire(ctx, key) {
			res.Skipped++
			continue
		}

		job, err := n.jobDocument(ctx, jobs, m.JobID)
		if err != nil {
			n.release(ctx, key)
			if errors.Is(err, repository.ErrJobNotFound) {
				res.Skipped++
				continue
			}
			return res, err
		}

		out, err := n.dispatcher.Enqueue(ctx, MatchIntent(m, job))
		if err != nil {
			n.release(ctx, key)
			res.Failed++
			n.logger.Error("match notification dispatch failed",
				zap.Stringer("user_id", m.UserID),
				zap.Stringer("job_id", m.JobID),
				zap.Error(err),
			)
			continue
		}
		if out.Queued {
			res.Queued++
			continue
		}
		n.release(ctx, key)
		res.Inline++
	}
	return res, nil
}

// NotifyPendingMatches sweeps the store for matches left unnotified, for
// example by a crash between upsert and dispatch.
func (n *MatchNotifier) NotifyPendingMatches(ctx context.Context, limit int) (NotifyResult, error) {
	pending, err := n.matches.ListUnnotified(ctx, limit)
	if err != nil {
		return NotifyResult{}, fmt.Errorf("list unnotified matches: %w", err)
	}
	res, err := n.NotifyMatches(ctx, pending)
	if err != nil {
		return res, err
	}
	if res.Scanned > 0 {
		n.logger.Info("pending match sweep",
			zap.Int("scanned", res.Scanned),
			zap.Int("queued", res.Queued),
			zap.Int("inline", res.Inline),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
	}
	return res, nil
}

func (n *MatchNotifier) acquire(ctx context.Context, key string) bool {
	if n.locker == nil {
		return true
	}
	ok, err := n.locker.SetIfNotExists(ctx, key, "1", n.lockTTL)
	if err != nil {
		// Duplicate delivery is tolerated; a missed notification is not.
		n.logger.Warn("pending guard unavailable", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

func (n *MatchNotifier) release(ctx context.Context, key string) {
	if n.locker == nil {
		return
	}
	if err := n.locker.Delete(ctx, key); err != nil {
		n.logger.Warn("pending guard release failed", zap.String("key", key), zap.Error(err))
	}
}

func (n *MatchNotifier) jobDocument(ctx context.Context, cache map[uuid.UUID]*repository.JobDocument, jobID uuid.UUID) (*repository.JobDocument, error) {
	if doc, ok := cache[jobID]; ok {
		return doc, nil
	}
	if n.jobs == nil {
		doc := &repository.JobDocument{ID: jobID}
		cache[jobID] = doc
		return doc, nil
	}
	doc, err := n.jobs.GetJobDocument(ctx, jobID)
	if err != nil {
		return nil, err
	}
	cache[jobID] = &doc
	return &doc, nil
}

// MatchIntent builds the job_match intent for one match.
func MatchIntent(m match.JobMatch, job *repository.JobDocument) notification.Intent {
	jobID := m.JobID
	score := m.MatchScore
	data := map[string]any{
		"job_id":      m.JobID.String(),
		"match_score": m.MatchScore,
	}
	if job != nil {
		data["job_title"] = job.Title
		data["company"] = job.Company
		data["location"] = job.Location
	}
	return notification.Intent{
		Recipient:  notification.Recipient{UserID: m.UserID},
		Template:   notification.TemplateJobMatch,
		Data:       data,
		JobID:      &jobID,
		MatchScore: &score,
		Matches:    []match.Key{m.Key()},
	}
}
