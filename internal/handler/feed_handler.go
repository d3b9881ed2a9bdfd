package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mfeed/internal/pkg/response"
	"github.com/xxxsen/mfeed/internal/scoring"
	"github.com/xxxsen/mfeed/internal/service"
)

const defaultPageSize = 20

type FeedRanker interface {
	RankFeed(ctx context.Context, req service.RankRequest) (*service.Page, error)
}

type SeenMarker interface {
	MarkSeen(ctx context.Context, identityID string, contentIDs []string) error
}

type FeedHandler struct {
	feed FeedRanker
	seen SeenMarker
}

func NewFeedHandler(feed FeedRanker, seen SeenMarker) *FeedHandler {
	return &FeedHandler{feed: feed, seen: seen}
}

type feedRequest struct {
	PageSize *int              `json:"page_size"`
	Cursor   string            `json:"cursor"`
	Weights  *scoring.Override `json:"weights"`
}

type seenRequest struct {
	ContentIDs []string `json:"content_ids"`
}

// Get serves GET /feed?page_size=&cursor=.
func (h *FeedHandler) Get(c *gin.Context) {
	pageSize := defaultPageSize
	if value := c.Query("page_size"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			invalidRequest(c, "page_size must be an integer")
			return
		}
		pageSize = parsed
	}
	h.rank(c, service.RankRequest{
		IdentityID: getIdentityID(c),
		PageSize:   pageSize,
		Cursor:     c.Query("cursor"),
	})
}

// Post serves POST /feed; the body may carry weight overrides.
func (h *FeedHandler) Post(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	pageSize := defaultPageSize
	if req.PageSize != nil {
		pageSize = *req.PageSize
	}
	h.rank(c, service.RankRequest{
		IdentityID: getIdentityID(c),
		PageSize:   pageSize,
		Cursor:     req.Cursor,
		Weights:    req.Weights,
	})
}

func (h *FeedHandler) rank(c *gin.Context, req service.RankRequest) {
	page, err := h.feed.RankFeed(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Page(c, page.Items, page.NextCursor)
}

func (h *FeedHandler) MarkSeen(c *gin.Context) {
	var req seenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	if err := h.seen.MarkSeen(c.Request.Context(), getIdentityID(c), req.ContentIDs); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
