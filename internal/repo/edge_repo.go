package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/pkg/dbutil"
)

type EdgeRepo struct {
	db *sql.DB
}

func NewEdgeRepo(db *sql.DB) *EdgeRepo {
	return &EdgeRepo{db: db}
}

// ListFollowing returns the identities followerID actively follows.
func (r *EdgeRepo) ListFollowing(ctx context.Context, followerID string) ([]string, error) {
	sqlStr, args, err := builder.BuildSelect("follows", map[string]interface{}{
		"follower_id": followerID,
		"state":       model.EdgeStateActive,
	}, []string{"followee_id"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.listIDs(ctx, sqlStr, args...)
}

// ListBlocked returns every identity on the other side of an active block
// with identityID, in either direction.
func (r *EdgeRepo) ListBlocked(ctx context.Context, identityID string) ([]string, error) {
	const query = `
		SELECT blocked_id FROM blocks WHERE blocker_id = $1 AND state = $2
		UNION
		SELECT blocker_id FROM blocks WHERE blocked_id = $1 AND state = $2
	`
	return r.listIDs(ctx, query, identityID, model.EdgeStateActive)
}

func (r *EdgeRepo) listIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
