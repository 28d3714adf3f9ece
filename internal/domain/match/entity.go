package match

import (
	"time"

	"github.com/google/uuid"
)

type Key struct {
	UserID uuid.UUID `json:"user_id"`
	JobID  uuid.UUID `json:"job_id"`
}

func (k Key) Valid() bool {
	return k.UserID != uuid.Nil && k.JobID != uuid.Nil
}

type JobMatch struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	JobID           uuid.UUID
	MatchScore      int
	SimilarityScore float64
	Notified        bool
	NotifiedAt      *time.Time
	MatchedAt       time.Time
}

func (m JobMatch) Key() Key {
	return Key{UserID: m.UserID, JobID: m.JobID}
}
