package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

var postColumns = []string{"id", "author_id", "body", "content_type", "save_count", "comment_count", "embedding", "ctime"}

type ContentRepo struct {
	db *sql.DB
}

func NewContentRepo(db *sql.DB) *ContentRepo {
	return &ContentRepo{db: db}
}

// ListByIDs returns the posts that exist among ids; missing ids are skipped.
func (r *ContentRepo) ListByIDs(ctx context.Context, ids []string) ([]model.ContentItem, error) {
	in := dbutil.InArgs(ids)
	if len(in) == 0 {
		return []model.ContentItem{}, nil
	}
	items, err := r.query(ctx, map[string]interface{}{"id in": in})
	if err != nil {
		return nil, err
	}
	if err := r.fillTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ContentRepo) ListRecentByAuthor(ctx context.Context, authorID string, limit uint) ([]model.ContentItem, error) {
	items, err := r.query(ctx, map[string]interface{}{
		"author_id": authorID,
		"_orderby":  "ctime desc",
		"_limit":    []uint{0, limit},
	})
	if err != nil {
		return nil, err
	}
	if err := r.fillTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListMissingEmbeddings returns the oldest posts that have no embedding yet.
func (r *ContentRepo) ListMissingEmbeddings(ctx context.Context, limit uint) ([]model.ContentItem, error) {
	items, err := r.query(ctx, map[string]interface{}{
		"embedding": builder.IsNull,
		"_orderby":  "ctime asc",
		"_limit":    []uint{0, limit},
	})
	if err != nil {
		return nil, err
	}
	if err := r.fillTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListEmbedded pages through embedded posts in id order, starting after afterID.
func (r *ContentRepo) ListEmbedded(ctx context.Context, afterID string, limit uint) ([]model.ContentItem, error) {
	return r.query(ctx, map[string]interface{}{
		"embedding": builder.IsNotNull,
		"id >":      afterID,
		"_orderby":  "id asc",
		"_limit":    []uint{0, limit},
	})
}

func (r *ContentRepo) SaveEmbedding(ctx context.Context, id string, embedding []float32, mtime int64) error {
	if err := vecmath.CheckDim(embedding); err != nil {
		return err
	}
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{
		"embedding": pgvector.NewVector(embedding),
		"mtime":     mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("posts", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ContentRepo) query(ctx context.Context, where map[string]interface{}) ([]model.ContentItem, error) {
	sqlStr, args, err := builder.BuildSelect("posts", where, postColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.ContentItem, 0)
	for rows.Next() {
		var item model.ContentItem
		var contentType string
		var embedding nullVector
		if err := rows.Scan(&item.ID, &item.AuthorID, &item.Body, &contentType, &item.SaveCount, &item.CommentCount, &embedding, &item.Ctime); err != nil {
			return nil, err
		}
		item.ContentType = model.ContentType(contentType)
		item.Embedding = embedding.Slice()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ContentRepo) fillTags(ctx context.Context, items []model.ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	sqlStr, args, err := builder.BuildSelect("post_tags", map[string]interface{}{
		"post_id in": dbutil.InArgs(ids),
		"_orderby":   "tag asc",
	}, []string{"post_id", "tag"})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	tags := make(map[string][]string)
	for rows.Next() {
		var postID, tag string
		if err := rows.Scan(&postID, &tag); err != nil {
			return err
		}
		tags[postID] = append(tags[postID], tag)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range items {
		items[i].Tags = tags[items[i].ID]
	}
	return nil
}
