package dto

import (
	"time"

	"job-match/internal/repository"

	"github.com/google/uuid"
)

type UserMatchResponse struct {
	JobID           uuid.UUID `json:"job_id"`
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	MatchScore      int       `json:"match_score"`
	SimilarityScore float64   `json:"similarity_score"`
	Notified        bool      `json:"notified"`
	MatchedAt       time.Time `json:"matched_at"`
}

func NewUserMatchResponses(items []repository.UserMatchedJob) []UserMatchResponse {
	out := make([]UserMatchResponse, 0, len(items))
	for _, it := range items {
		out = append(out, UserMatchResponse{
			JobID:           it.JobID,
			Title:           it.Title,
			Company:         it.Company,
			Location:        it.Location,
			MatchScore:      it.MatchScore,
			SimilarityScore: it.SimilarityScore,
			Notified:        it.Notified,
			MatchedAt:       it.MatchedAt,
		})
	}
	return out
}
