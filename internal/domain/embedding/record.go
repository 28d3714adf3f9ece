package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindResume Kind = "resume"
	KindJob    Kind = "job"
)

func (k Kind) Valid() bool {
	return k == KindResume || k == KindJob
}

func (k Kind) String() string {
	return string(k)
}

var ErrEmptyVector = errors.New("empty embedding vector")

// Record is the single stored embedding of one resume or job.
type Record struct {
	Kind        Kind
	OwnerID     uuid.UUID
	Vector      []float32
	ContentHash string
	UpdatedAt   time.Time
}

func (r Record) Dimensions() int {
	return len(r.Vector)
}

// ContentHash is the hex SHA-256 of the exact source text.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Unchanged reports whether text still matches the stored record, so the
// provider call can be skipped.
func (r Record) Unchanged(text string) bool {
	return r.ContentHash != "" && len(r.Vector) > 0 && r.ContentHash == ContentHash(text)
}
