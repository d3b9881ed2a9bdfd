package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/pkg/dbutil"
)

type SaveRepo struct {
	db *sql.DB
}

func NewSaveRepo(db *sql.DB) *SaveRepo {
	return &SaveRepo{db: db}
}

// ListRecent returns the latest saves of identityID, newest first.
func (r *SaveRepo) ListRecent(ctx context.Context, identityID string, limit uint) ([]model.SavedItem, error) {
	sqlStr, args, err := builder.BuildSelect("saves", map[string]interface{}{
		"identity_id": identityID,
		"_orderby":    "ctime desc, content_id asc",
		"_limit":      []uint{0, limit},
	}, []string{"identity_id", "content_id", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SavedItem, 0)
	for rows.Next() {
		var item model.SavedItem
		if err := rows.Scan(&item.IdentityID, &item.ContentID, &item.Ctime); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListActiveIdentities returns identities that saved or authored something since.
func (r *SaveRepo) ListActiveIdentities(ctx context.Context, since int64, limit int) ([]string, error) {
	const query = `
		SELECT identity_id FROM saves WHERE ctime >= $1
		UNION
		SELECT author_id FROM posts WHERE ctime >= $1
		ORDER BY 1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
