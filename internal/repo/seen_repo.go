package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/pkg/dbutil"
)

type SeenRepo struct {
	db *sql.DB
}

func NewSeenRepo(db *sql.DB) *SeenRepo {
	return &SeenRepo{db: db}
}

// MarkSeen records that identityID saw every id at seenAt, refreshing older records.
func (r *SeenRepo) MarkSeen(ctx context.Context, identityID string, contentIDs []string, seenAt int64) error {
	ids := dbutil.InArgs(contentIDs)
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	const query = `
		INSERT INTO seen_records (identity_id, content_id, seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id, content_id) DO UPDATE SET
			seen_at = GREATEST(seen_records.seen_at, EXCLUDED.seen_at)
	`
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, identityID, id, seenAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListSince returns seen records of identityID newer than since.
func (r *SeenRepo) ListSince(ctx context.Context, identityID string, since int64) ([]model.SeenRecord, error) {
	sqlStr, args, err := builder.BuildSelect("seen_records", map[string]interface{}{
		"identity_id": identityID,
		"seen_at >=":  since,
	}, []string{"identity_id", "content_id", "seen_at"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SeenRecord, 0)
	for rows.Next() {
		var rec model.SeenRecord
		if err := rows.Scan(&rec.IdentityID, &rec.ContentID, &rec.SeenAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SeenRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("seen_records", map[string]interface{}{"seen_at <": cutoff})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
