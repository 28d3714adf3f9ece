package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"job-match/internal/domain/embedding"
	"job-match/internal/domain/match"
	"job-match/internal/domain/matching"
	embedder "job-match/internal/infrastructure/embedding"
	"job-match/internal/metrics"
	"job-match/internal/realtime"
	"job-match/internal/repository"
	notifyuc "job-match/internal/usecase/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MatchingUsecase interface {
	MatchJobAgainstAllResumes(ctx context.Context, jobID uuid.UUID, jobVector []float32) (MatchPass, error)
	GetUserMatchingJobs(ctx context.Context, userID uuid.UUID, minScore int) ([]repository.UserMatchedJob, error)
	EmbedAndMatchJob(ctx context.Context, jobID uuid.UUID) (EmbedJobResult, error)
	EmbedResume(ctx context.Context, userID uuid.UUID) (EmbedResumeResult, error)
}

type MatchNotifier interface {
	NotifyMatches(ctx context.Context, matches []match.JobMatch) (notifyuc.NotifyResult, error)
}

// MatchPass is the outcome of one job-against-all-resumes scan.
type MatchPass struct {
	Deltas  []match.JobMatch
	Scanned int
	Failed  int
}

type EmbedJobResult struct {
	EmbeddingDimensions int  `json:"embedding_dimensions"`
	EmbeddingReused     bool `json:"embedding_reused"`
	MatchCount          int  `json:"match_count"`
	FailedCount         int  `json:"failed_count"`
	NotificationsQueued int  `json:"notifications_queued"`
	NotificationsInline int  `json:"notifications_inline"`
}

type EmbedResumeResult struct {
	EmbeddingDimensions int  `json:"embedding_dimensions"`
	EmbeddingReused     bool `json:"embedding_reused"`
}

type MatchingDeps struct {
	Jobs      repository.JobRepository
	Resumes   repository.ResumeRepository
	Vectors   repository.VectorRepository
	Matches   repository.JobMatchRepository
	Provider  embedder.Provider
	Notifier  MatchNotifier
	Publisher realtime.Publisher
	PageSize  int
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

type Matching struct {
	jobs      repository.JobRepository
	resumes   repository.ResumeRepository
	vectors   repository.VectorRepository
	matches   repository.JobMatchRepository
	provider  embedder.Provider
	notifier  MatchNotifier
	publisher realtime.Publisher
	pageSize  int
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewMatchingUsecase(d MatchingDeps) *Matching {
	u := &Matching{
		jobs:      d.Jobs,
		resumes:   d.Resumes,
		vectors:   d.Vectors,
		matches:   d.Matches,
		provider:  d.Provider,
		notifier:  d.Notifier,
		publisher: d.Publisher,
		pageSize:  d.PageSize,
		logger:    d.Logger,
		metrics:   d.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if u.pageSize <= 0 {
		u.pageSize = repository.DefaultEmbeddingPageSize
	}
	if u.logger == nil {
		u.logger = zap.NewNop()
	}
	if u.publisher == nil {
		u.publisher = realtime.NoopPublisher{}
	}
	return u
}

// MatchJobAgainstAllResumes scores jobVector against every stored resume and
// upserts the pairs that meet the threshold. Pairs below it are left alone.
// A failed comparison is counted and skipped; a store failure ends the pass.
func (u *Matching) MatchJobAgainstAllResumes(ctx context.Context, jobID uuid.UUID, jobVector []float32) (MatchPass, error) {
	if jobID == uuid.Nil || len(jobVector) == 0 {
		return MatchPass{}, ErrInvalidInput
	}

	start := time.Now()
	var pass MatchPass
	defer func() {
		u.metrics.MatchPass(time.Since(start), len(pass.Deltas), pass.Failed)
	}()

	for rec, err := range repository.IterateEmbeddings(ctx, u.vectors, embedding.KindResume, u.pageSize) {
		if err != nil {
			return pass, fmt.Errorf("%w: list resume embeddings: %w", ErrPersistence, err)
		}
		pass.Scanned++

		sim, err := matching.CosineSimilarity(jobVector, rec.Vector)
		if err != nil {
			pass.Failed++
			u.logger.Error("resume comparison failed",
				zap.Stringer("job_id", jobID),
				zap.Stringer("user_id", rec.OwnerID),
				zap.Int("job_dimensions", len(jobVector)),
				zap.Int("resume_dimensions", rec.Dimensions()),
				zap.Error(err),
			)
			continue
		}
		if !matching.MeetsThreshold(sim) {
			continue
		}

		m, err := u.matches.Upsert(ctx, repository.JobMatchUpsert{
			UserID:     rec.OwnerID,
			JobID:      jobID,
			Score:      matching.ScoreFromSimilarity(sim),
			Similarity: sim,
			MatchedAt:  u.now(),
		})
		if err != nil {
			return pass, fmt.Errorf("%w: upsert match: %w", ErrPersistence, err)
		}
		pass.Deltas = append(pass.Deltas, m)

		u.publisher.Publish(ctx, realtime.ChannelMatches, realtime.NewEvent(realtime.EventMatchCreated, map[string]any{
			"user_id":     m.UserID,
			"job_id":      m.JobID,
			"match_score": m.MatchScore,
		}))
	}

	u.logger.Info("match pass finished",
		zap.Stringer("job_id", jobID),
		zap.Int("scanned", pass.Scanned),
		zap.Int("matched", len(pass.Deltas)),
		zap.Int("failed", pass.Failed),
	)
	return pass, nil
}

func (u *Matching) GetUserMatchingJobs(ctx context.Context, userID uuid.UUID, minScore int) ([]repository.UserMatchedJob, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthorized
	}
	if minScore < 0 || minScore > 100 {
		return nil, ErrInvalidInput
	}
	items, err := u.matches.ListByUser(ctx, userID, minScore)
	if err != nil {
		return nil, fmt.Errorf("%w: list user matches: %w", ErrPersistence, err)
	}
	return items, nil
}

// EmbedAndMatchJob refreshes the job's embedding when its text changed,
// matches it against all resumes and dispatches notifications for new
// matches.
func (u *Matching) EmbedAndMatchJob(ctx context.Context, jobID uuid.UUID) (EmbedJobResult, error) {
	if jobID == uuid.Nil {
		return EmbedJobResult{}, ErrInvalidInput
	}

	doc, err := u.jobs.GetJobDocument(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return EmbedJobResult{}, ErrJobNotFound
		}
		return EmbedJobResult{}, fmt.Errorf("%w: load job: %w", ErrPersistence, err)
	}
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return EmbedJobResult{}, fmt.Errorf("%w: job has no text", ErrInvalidInput)
	}

	vec, reused, err := u.embed(ctx, embedding.KindJob, jobID, text)
	if err != nil {
		return EmbedJobResult{}, err
	}
	res := EmbedJobResult{EmbeddingDimensions: len(vec), EmbeddingReused: reused}
	u.publisher.Publish(ctx, realtime.ChannelJobs, realtime.NewEvent(realtime.EventJobEmbedded, map[string]any{
		"job_id":     jobID,
		"dimensions": len(vec),
		"reused":     reused,
	}))

	pass, err := u.MatchJobAgainstAllResumes(ctx, jobID, vec)
	res.MatchCount = len(pass.Deltas)
	res.FailedCount = pass.Failed
	if err != nil {
		return res, err
	}

	pending := make([]match.JobMatch, 0, len(pass.Deltas))
	for _, m := range pass.Deltas {
		if !m.Notified {
			pending = append(pending, m)
		}
	}
	if len(pending) > 0 && u.notifier != nil {
		nres, err := u.notifier.NotifyMatches(ctx, pending)
		res.NotificationsQueued = nres.Queued
		res.NotificationsInline = nres.Inline
		if err != nil {
			// The matches are stored unnotified; the pending sweep picks them up.
			u.logger.Warn("match notification failed", zap.Stringer("job_id", jobID), zap.Error(err))
		}
	}
	return res, nil
}

func (u *Matching) EmbedResume(ctx context.Context, userID uuid.UUID) (EmbedResumeResult, error) {
	if userID == uuid.Nil {
		return EmbedResumeResult{}, ErrInvalidInput
	}

	text, err := u.resumes.GetResumeText(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrResumeNotFound) {
			return EmbedResumeResult{}, ErrResumeNotFound
		}
		return EmbedResumeResult{}, fmt.Errorf("%w: load resume: %w", ErrPersistence, err)
	}

	vec, reused, err := u.embed(ctx, embedding.KindResume, userID, text)
	if err != nil {
		return EmbedResumeResult{}, err
	}
	return EmbedResumeResult{EmbeddingDimensions: len(vec), EmbeddingReused: reused}, nil
}

// embed returns the owner's vector for text, calling the provider only when
// the stored content hash differs.
func (u *Matching) embed(ctx context.Context, kind embedding.Kind, ownerID uuid.UUID, text string) ([]float32, bool, error) {
	stored, ok, err := u.vectors.Get(ctx, kind, ownerID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: load %s embedding: %w", ErrPersistence, kind, err)
	}
	if ok && stored.Unchanged(text) {
		u.metrics.Embedding(kind.String(), "reused")
		return stored.Vector, true, nil
	}

	if u.provider == nil {
		u.metrics.Embedding(kind.String(), "error")
		return nil, false, ErrProviderUnavailable
	}
	vec, err := u.provider.Embed(ctx, text)
	if err != nil {
		u.metrics.Embedding(kind.String(), "error")
		return nil, false, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	if len(vec) == 0 {
		u.metrics.Embedding(kind.String(), "error")
		return nil, false, fmt.Errorf("%w: %w", ErrProviderUnavailable, embedding.ErrEmptyVector)
	}

	rec := embedding.Record{
		Kind:        kind,
		OwnerID:     ownerID,
		Vector:      vec,
		ContentHash: embedding.ContentHash(text),
		UpdatedAt:   u.now(),
	}
	if err := u.vectors.Put(ctx, rec); err != nil {
		return nil, false, fmt.Errorf("%w: store %s embedding: %w", ErrPersistence, kind, err)
	}
	u.metrics.Embedding(kind.String(), "computed")
	u.logger.Debug("embedding stored",
		zap.String("kind", kind.String()),
		zap.Stringer("owner_id", ownerID),
		zap.Int("dimensions", len(vec)),
		zap.String("model", u.provider.ModelName()),
	)
	return vec, false, nil
}
