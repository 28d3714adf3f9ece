package repository

import (
	"context"
	"fmt"
	"iter"
	"time"

	"job-match/internal/database"
	"job-match/internal/domain/embedding"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

const DefaultEmbeddingPageSize = 500

// EmbeddingPager returns records of one kind ordered by owner id, strictly
// after the given owner. Any store or index can serve the matching scan
// through it.
type EmbeddingPager interface {
	ListPage(ctx context.Context, kind embedding.Kind, after uuid.UUID, limit int) ([]embedding.Record, error)
}

type VectorRepository interface {
	EmbeddingPager
	Put(ctx context.Context, rec embedding.Record) error
	Get(ctx context.Context, kind embedding.Kind, ownerID uuid.UUID) (embedding.Record, bool, error)
}

type PostgresVectorRepository struct {
	db database.DB
}

func NewPostgresVectorRepository(db database.DB) *PostgresVectorRepository {
	return &PostgresVectorRepository{db: db}
}

func (r *PostgresVectorRepository) Put(ctx context.Context, rec embedding.Record) error {
	if !rec.Kind.Valid() || rec.OwnerID == uuid.Nil {
		return fmt.Errorf("put embedding: invalid key kind=%q owner=%s", rec.Kind, rec.OwnerID)
	}
	if len(rec.Vector) == 0 {
		return embedding.ErrEmptyVector
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO embeddings (kind, owner_id, vector, content_hash, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (kind, owner_id) DO UPDATE SET
			vector = EXCLUDED.vector,
			content_hash = EXCLUDED.content_hash,
			updated_at = EXCLUDED.updated_at`,
		string(rec.Kind),
		rec.OwnerID,
		pgvector.NewVector(rec.Vector),
		rec.ContentHash,
		rec.UpdatedAt,
	)
	return err
}

func (r *PostgresVectorRepository) Get(ctx context.Context, kind embedding.Kind, ownerID uuid.UUID) (embedding.Record, bool, error) {
	var (
		rec embedding.Record
		vec pgvector.Vector
	)
	row := r.db.QueryRow(ctx,
		`SELECT owner_id, vector, content_hash, updated_at
		 FROM embeddings
		 WHERE kind = $1 AND owner_id = $2`,
		string(kind), ownerID,
	)
	if err := row.Scan(&rec.OwnerID, &vec, &rec.ContentHash, &rec.UpdatedAt); err != nil {
		if database.IsNoRows(err) {
			return embedding.Record{}, false, nil
		}
		return embedding.Record{}, false, err
	}
	rec.Kind = kind
	rec.Vector = vec.Slice()
	return rec, true, nil
}

func (r *PostgresVectorRepository) ListPage(ctx context.Context, kind embedding.Kind, after uuid.UUID, limit int) ([]embedding.Record, error) {
	if limit <= 0 {
		limit = DefaultEmbeddingPageSize
	}

	rows, err := r.db.Query(ctx,
		`SELECT owner_id, vector, content_hash, updated_at
		 FROM embeddings
		 WHERE kind = $1 AND owner_id > $2
		 ORDER BY owner_id ASC
		 LIMIT $3`,
		string(kind), after, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]embedding.Record, 0, limit)
	for rows.Next() {
		var (
			rec embedding.Record
			vec pgvector.Vector
		)
		if err := rows.Scan(&rec.OwnerID, &vec, &rec.ContentHash, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Kind = kind
		rec.Vector = vec.Slice()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IterateEmbeddings streams every record of kind page by page. A page error
// is yielded once and ends the iteration.
func IterateEmbeddings(ctx context.Context, pager EmbeddingPager, kind embedding.Kind, pageSize int) iter.Seq2[embedding.Record, error] {
	if pageSize <= 0 {
		pageSize = DefaultEmbeddingPageSize
	}
	return func(yield func(embedding.Record, error) bool) {
		after := uuid.Nil
		for {
			if err := ctx.Err(); err != nil {
				yield(embedding.Record{}, err)
				return
			}

			page, err := pager.ListPage(ctx, kind, after, pageSize)
			if err != nil {
				yield(embedding.Record{}, err)
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			after = page[len(page)-1].OwnerID
		}
	}
}
