package repository

import (
	"context"
	"time"

	"job-match/internal/database"
	"job-match/internal/domain/match"

	"github.com/google/uuid"
)

type JobMatchUpsert struct {
	UserID     uuid.UUID
	JobID      uuid.UUID
	Score      int
	Similarity float64
	MatchedAt  time.Time
}

// UserMatchedJob is a match joined with the job it points at.
type UserMatchedJob struct {
	JobID           uuid.UUID
	Title           string
	Company         string
	Location        string
	MatchScore      int
	SimilarityScore float64
	Notified        bool
	MatchedAt       time.Time
}

type JobMatchRepository interface {
	// Upsert writes the pair's latest score and returns the stored row. The
	// notified flag is never reset by an upsert.
	Upsert(ctx context.Context, m JobMatchUpsert) (match.JobMatch, error)
	MarkNotified(ctx context.Context, keys []match.Key, at time.Time) (int64, error)
	ListUnnotified(ctx context.Context, limit int) ([]match.JobMatch, error)
	ListByUser(ctx context.Context, userID uuid.UUID, minScore int) ([]UserMatchedJob, error)
}

type PostgresJobMatchRepository struct {
	db database.DB
}

func NewPostgresJobMatchRepository(db database.DB) *PostgresJobMatchRepository {
	return &PostgresJobMatchRepository{db: db}
}

func (r *PostgresJobMatchRepository) Upsert(ctx context.Context, m JobMatchUpsert) (match.JobMatch, error) {
	if m.MatchedAt.IsZero() {
		m.MatchedAt = time.Now().UTC()
	}

	out := match.JobMatch{
		UserID:          m.UserID,
		JobID:           m.JobID,
		MatchScore:      m.Score,
		SimilarityScore: m.Similarity,
		MatchedAt:       m.MatchedAt,
	}
	row := r.db.QueryRow(ctx,
		`INSERT INTO job_matches (id, user_id, job_id, match_score, similarity_score, matched_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (user_id, job_id) DO UPDATE SET
			match_score = EXCLUDED.match_score,
			similarity_score = EXCLUDED.similarity_score,
			matched_at = EXCLUDED.matched_at
		 RETURNING id, notified, notified_at`,
		uuid.New(),
		m.UserID,
		m.JobID,
		m.Score,
		m.Similarity,
		m.MatchedAt,
	)
	if err := row.Scan(&out.ID, &out.Notified, &out.NotifiedAt); err != nil {
		return match.JobMatch{}, err
	}
	return out, nil
}

// MarkNotified flags every key as notified in one transaction. The first
// notified_at is kept, so repeating the call is harmless.
func (r *PostgresJobMatchRepository) MarkNotified(ctx context.Context, keys []match.Key, at time.Time) (int64, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	valid := make([]match.Key, 0, len(keys))
	for _, k := range keys {
		if k.Valid() {
			valid = append(valid, k)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	var total int64
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		for _, k := range valid {
			n, err := tx.Exec(ctx,
				`UPDATE job_matches
				 SET notified = true, notified_at = COALESCE(notified_at, $3)
				 WHERE user_id = $1 AND job_id = $2`,
				k.UserID, k.JobID, at,
			)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PostgresJobMatchRepository) ListUnnotified(ctx context.Context, limit int) ([]match.JobMatch, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, job_id, match_score, similarity_score, matched_at
		 FROM job_matches
		 WHERE notified = false
		 ORDER BY matched_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]match.JobMatch, 0)
	for rows.Next() {
		var m match.JobMatch
		if err := rows.Scan(&m.ID, &m.UserID, &m.JobID, &m.MatchScore, &m.SimilarityScore, &m.MatchedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresJobMatchRepository) ListByUser(ctx context.Context, userID uuid.UUID, minScore int) ([]UserMatchedJob, error) {
	rows, err := r.db.Query(ctx,
		`SELECT m.job_id, COALESCE(j.title, ''), COALESCE(j.company, ''), COALESCE(j.location, ''),
			m.match_score, m.similarity_score, m.notified, m.matched_at
		 FROM job_matches m
		 JOIN jobs j ON j.id = m.job_id
		 WHERE m.user_id = $1 AND m.match_score >= $2
		 ORDER BY m.match_score DESC, m.matched_at DESC`,
		userID, minScore,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]UserMatchedJob, 0)
	for rows.Next() {
		var j UserMatchedJob
		if err := rows.Scan(&j.JobID, &j.Title, &j.Company, &j.Location, &j.MatchScore, &j.SimilarityScore, &j.Notified, &j.MatchedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
