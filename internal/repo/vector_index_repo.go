package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/mfeed/internal/candidate"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

// VectorIndexRepo runs cosine distance ANN over posts.embedding.
type VectorIndexRepo struct {
	db *sql.DB
}

func NewVectorIndexRepo(db *sql.DB) *VectorIndexRepo {
	return &VectorIndexRepo{db: db}
}

func (r *VectorIndexRepo) Search(ctx context.Context, query []float32, limit int, filter candidate.Filter) ([]candidate.Hit, error) {
	if err := vecmath.CheckDim(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []candidate.Hit{}, nil
	}
	const q = `
		SELECT id, 1 - (embedding <=> $1) AS score
		FROM posts
		WHERE embedding IS NOT NULL
			AND NOT (id = ANY($2::text[]))
			AND NOT (author_id = ANY($3::text[]))
		ORDER BY embedding <=> $1, id
		LIMIT $4
	`
	excludeIDs := filter.ExcludeIDs
	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	excludeAuthors := filter.ExcludeAuthors
	if excludeAuthors == nil {
		excludeAuthors = []string{}
	}
	rows, err := r.db.QueryContext(ctx, q, pgvector.NewVector(query), pq.Array(excludeIDs), pq.Array(excludeAuthors), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hits := make([]candidate.Hit, 0, limit)
	for rows.Next() {
		var hit candidate.Hit
		var score float64
		if err := rows.Scan(&hit.ID, &score); err != nil {
			return nil, err
		}
		hit.Score = float32(score)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return candidate.Truncate(hits, limit), nil
}
