package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/pkg/dbutil"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

// Writers for tables owned by other services. Tests use them to seed rows.

func createPost(ctx context.Context, db *sql.DB, item *model.ContentItem) error {
	data := map[string]interface{}{
		"id":            item.ID,
		"author_id":     item.AuthorID,
		"body":          item.Body,
		"content_type":  string(item.ContentType),
		"save_count":    item.SaveCount,
		"comment_count": item.CommentCount,
		"ctime":         item.Ctime,
		"mtime":         item.Ctime,
	}
	if len(item.Embedding) > 0 {
		if err := vecmath.CheckDim(item.Embedding); err != nil {
			return err
		}
		data["embedding"] = pgvector.NewVector(item.Embedding)
	}
	sqlStr, args, err := builder.BuildInsert("posts", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	if len(item.Tags) > 0 {
		rows := make([]map[string]interface{}, 0, len(item.Tags))
		for _, tag := range dbutil.InArgs(item.Tags) {
			rows = append(rows, map[string]interface{}{"post_id": item.ID, "tag": tag})
		}
		sqlStr, args, err = builder.BuildInsert("post_tags", rows)
		if err != nil {
			return err
		}
		sqlStr, args = dbutil.Finalize(sqlStr, args)
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func setFollow(ctx context.Context, db *sql.DB, edge *model.FollowEdge) error {
	const query = `
		INSERT INTO follows (follower_id, followee_id, state, mtime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (follower_id, followee_id) DO UPDATE SET
			state = EXCLUDED.state,
			mtime = EXCLUDED.mtime
	`
	_, err := db.ExecContext(ctx, query, edge.FollowerID, edge.FolloweeID, edge.State, edge.Mtime)
	return err
}

func setBlock(ctx context.Context, db *sql.DB, edge *model.BlockEdge) error {
	const query = `
		INSERT INTO blocks (blocker_id, blocked_id, state, mtime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (blocker_id, blocked_id) DO UPDATE SET
			state = EXCLUDED.state,
			mtime = EXCLUDED.mtime
	`
	_, err := db.ExecContext(ctx, query, edge.BlockerID, edge.BlockedID, edge.State, edge.Mtime)
	return err
}

func upsertUser(ctx context.Context, db *sql.DB, user *model.AuthorProfile, ctime int64) error {
	const query = `
		INSERT INTO users (id, display_name, avatar_key, is_private, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			avatar_key = EXCLUDED.avatar_key,
			is_private = EXCLUDED.is_private,
			mtime = EXCLUDED.mtime
	`
	_, err := db.ExecContext(ctx, query, user.ID, user.DisplayName, user.AvatarKey, user.IsPrivate, ctime)
	return err
}

func saveFeedProfile(ctx context.Context, db *sql.DB, p *model.FeedProfile) error {
	const query = `
		INSERT INTO feed_profiles (identity_id, similarity, temporal, diversity, engagement, privacy, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity_id) DO UPDATE SET
			similarity = EXCLUDED.similarity,
			temporal = EXCLUDED.temporal,
			diversity = EXCLUDED.diversity,
			engagement = EXCLUDED.engagement,
			privacy = EXCLUDED.privacy,
			mtime = EXCLUDED.mtime
	`
	_, err := db.ExecContext(ctx, query, p.IdentityID, p.Similarity, p.Temporal, p.Diversity, p.Engagement, p.Privacy, p.Mtime)
	return err
}

func addMedia(ctx context.Context, db *sql.DB, postID string, media model.Media, position int) error {
	const query = `
		INSERT INTO post_media (post_id, media_key, kind, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, media_key) DO UPDATE SET
			kind = EXCLUDED.kind,
			position = EXCLUDED.position
	`
	_, err := db.ExecContext(ctx, query, postID, media.Key, media.Kind, position)
	return err
}

func addSave(ctx context.Context, db *sql.DB, item *model.SavedItem) error {
	const query = `
		INSERT INTO saves (identity_id, content_id, ctime)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id, content_id) DO NOTHING
	`
	_, err := db.ExecContext(ctx, query, item.IdentityID, item.ContentID, item.Ctime)
	return err
}
