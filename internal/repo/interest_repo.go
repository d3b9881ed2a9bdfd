package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

type InterestRepo struct {
	db *sql.DB
}

func NewInterestRepo(db *sql.DB) *InterestRepo {
	return &InterestRepo{db: db}
}

// Get returns the interest vector of identityID; ok is false on cold start.
func (r *InterestRepo) Get(ctx context.Context, identityID string) ([]float32, bool, error) {
	const query = `SELECT embedding FROM interest_vectors WHERE identity_id = $1`
	var embedding pgvector.Vector
	err := r.db.QueryRowContext(ctx, query, identityID).Scan(&embedding)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return embedding.Slice(), true, nil
}

func (r *InterestRepo) Save(ctx context.Context, iv *model.InterestVector) error {
	if err := vecmath.CheckDim(iv.Embedding); err != nil {
		return err
	}
	const query = `
		INSERT INTO interest_vectors (identity_id, embedding, sources, mtime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			sources = EXCLUDED.sources,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query, iv.IdentityID, pgvector.NewVector(iv.Embedding), iv.Sources, iv.Mtime)
	return err
}

func (r *InterestRepo) Delete(ctx context.Context, identityID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM interest_vectors WHERE identity_id = $1`, identityID)
	return err
}
