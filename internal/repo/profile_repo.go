package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

// ProfileRepo reads identity level data: author profiles, privacy flags,
// feed profiles and post media.
type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) ListAuthors(ctx context.Context, ids []string) (map[string]model.AuthorProfile, error) {
	out := make(map[string]model.AuthorProfile)
	in := dbutil.InArgs(ids)
	if len(in) == 0 {
		return out, nil
	}
	sqlStr, args, err := builder.BuildSelect("users", map[string]interface{}{"id in": in},
		[]string{"id", "display_name", "avatar_key", "is_private"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.AuthorProfile
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarKey, &p.IsPrivate); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// ListPrivacy maps author id to its private flag. Unknown ids are absent.
func (r *ProfileRepo) ListPrivacy(ctx context.Context, ids []string) (map[string]bool, error) {
	authors, err := r.ListAuthors(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(authors))
	for id, p := range authors {
		out[id] = p.IsPrivate
	}
	return out, nil
}

func (r *ProfileRepo) GetFeedProfile(ctx context.Context, identityID string) (*model.FeedProfile, error) {
	sqlStr, args, err := builder.BuildSelect("feed_profiles", map[string]interface{}{"identity_id": identityID},
		[]string{"identity_id", "similarity", "temporal", "diversity", "engagement", "privacy", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var p model.FeedProfile
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&p.IdentityID, &p.Similarity, &p.Temporal, &p.Diversity, &p.Engagement, &p.Privacy, &p.Mtime)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListMedia returns media keys per post ordered by position. URL is left empty.
func (r *ProfileRepo) ListMedia(ctx context.Context, postIDs []string) (map[string][]model.Media, error) {
	out := make(map[string][]model.Media)
	in := dbutil.InArgs(postIDs)
	if len(in) == 0 {
		return out, nil
	}
	sqlStr, args, err := builder.BuildSelect("post_media", map[string]interface{}{
		"post_id in": in,
		"_orderby":   "position asc",
	}, []string{"post_id", "media_key", "kind"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var postID string
		var m model.Media
		if err := rows.Scan(&postID, &m.Key, &m.Kind); err != nil {
			return nil, err
		}
		out[postID] = append(out[postID], m)
	}
	return out, rows.Err()
}
