package repository

import (
	"context"
	"errors"
	"strings"

	"job-match/internal/database"

	"github.com/google/uuid"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrResumeNotFound = errors.New("resume not found")
)

type JobDocument struct {
	ID          uuid.UUID
	Title       string
	Company     string
	Location    string
	Description string
}

// Text is the source text embedded for the job.
func (d JobDocument) Text() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{d.Title, d.Company, d.Location, d.Description} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

type JobRepository interface {
	GetJobDocument(ctx context.Context, jobID uuid.UUID) (JobDocument, error)
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) GetJobDocument(ctx context.Context, jobID uuid.UUID) (JobDocument, error) {
	var d JobDocument
	row := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(title, ''), COALESCE(company, ''), COALESCE(location, ''), COALESCE(description, '')
		 FROM jobs
		 WHERE id = $1`,
		jobID,
	)
	if err := row.Scan(&d.ID, &d.Title, &d.Company, &d.Location, &d.Description); err != nil {
		if database.IsNoRows(err) {
			return JobDocument{}, ErrJobNotFound
		}
		return JobDocument{}, err
	}
	return d, nil
}

type ResumeRepository interface {
	GetResumeText(ctx context.Context, userID uuid.UUID) (string, error)
}

type PostgresResumeRepository struct {
	db database.DB
}

func NewPostgresResumeRepository(db database.DB) *PostgresResumeRepository {
	return &PostgresResumeRepository{db: db}
}

func (r *PostgresResumeRepository) GetResumeText(ctx context.Context, userID uuid.UUID) (string, error) {
	var text string
	row := r.db.QueryRow(ctx,
		`SELECT COALESCE(extracted_text, '') FROM resumes WHERE user_id = $1`,
		userID,
	)
	if err := row.Scan(&text); err != nil {
		if database.IsNoRows(err) {
			return "", ErrResumeNotFound
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrResumeNotFound
	}
	return text, nil
}
