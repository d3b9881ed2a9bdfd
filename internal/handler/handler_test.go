package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/mfeed/internal/handler"
	"github.com/xxxsen/mfeed/internal/metrics"
	"github.com/xxxsen/mfeed/internal/middleware"
	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/pkg/errcode"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
	"github.com/xxxsen/mfeed/internal/pkg/jwt"
	"github.com/xxxsen/mfeed/internal/service"
)

var jwtSecret = []byte("test-secret")

type fakeRanker struct {
	last service.RankRequest
	page *service.Page
	err  error
}

func (f *fakeRanker) RankFeed(_ context.Context, req service.RankRequest) (*service.Page, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

type fakeSeen struct {
	identity string
	ids      []string
	err      error
}

func (f *fakeSeen) MarkSeen(_ context.Context, identityID string, ids []string) error {
	f.identity, f.ids = identityID, ids
	return f.err
}

type fakeEvents struct {
	events []model.MutationEvent
}

func (f *fakeEvents) Handle(_ context.Context, ev model.MutationEvent) error {
	if ev.Kind == model.EventFollow && ev.TargetID == "" {
		return fmt.Errorf("follow event needs a target: %w", appErr.ErrInvalid)
	}
	f.events = append(f.events, ev)
	return nil
}

type apiResult struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type fixture struct {
	router http.Handler
	ranker *fakeRanker
	seen   *fakeSeen
	events *fakeEvents
	token  string
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		ranker: &fakeRanker{page: &service.Page{Items: []model.FeedItem{}}},
		seen:   &fakeSeen{},
		events: &fakeEvents{},
	}
	deps := handler.RouterDeps{
		Feed:            handler.NewFeedHandler(f.ranker, f.seen),
		Events:          handler.NewEventHandler(f.events),
		Metrics:         metrics.NewMonitor().Handler(),
		JWTSecret:       jwtSecret,
		RateLimit:       100,
		RateLimitWindow: time.Minute,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	f.router = engine
	token, err := jwt.GenerateToken("me", jwtSecret, time.Hour)
	require.NoError(t, err)
	f.token = token
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) apiResult {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var result apiResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	return result
}

func TestFeedGet(t *testing.T) {
	f := setupRouter(t)
	f.ranker.page = &service.Page{
		Items:      []model.FeedItem{{ContentItem: model.ContentItem{ID: "p1", AuthorID: "bob"}, Score: 0.5}},
		NextCursor: "p1",
	}
	result := f.do(t, http.MethodGet, "/api/v1/feed", nil)
	require.Equal(t, 0, result.Code)
	require.Equal(t, "me", f.ranker.last.IdentityID)
	require.Equal(t, 20, f.ranker.last.PageSize)

	var page struct {
		Items      []model.FeedItem `json:"items"`
		NextCursor *string          `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(result.Data, &page))
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.NextCursor)
	require.Equal(t, "p1", *page.NextCursor)

	f.ranker.page = &service.Page{Items: []model.FeedItem{}}
	result = f.do(t, http.MethodGet, "/api/v1/feed?page_size=5&cursor=abc", nil)
	require.Equal(t, 5, f.ranker.last.PageSize)
	require.Equal(t, "abc", f.ranker.last.Cursor)
	require.JSONEq(t, `{"items":[],"next_cursor":null}`, string(result.Data))
}

func TestFeedGetInvalid(t *testing.T) {
	f := setupRouter(t)
	result := f.do(t, http.MethodGet, "/api/v1/feed?page_size=abc", nil)
	require.Equal(t, errcode.ErrInvalid, result.Code)

	f.ranker.err = fmt.Errorf("page size must be within [1,100]: %w", appErr.ErrInvalid)
	result = f.do(t, http.MethodGet, "/api/v1/feed?page_size=500", nil)
	require.Equal(t, errcode.ErrInvalid, result.Code)

	f.ranker.err = appErr.ErrDimensionMismatch
	result = f.do(t, http.MethodGet, "/api/v1/feed", nil)
	require.Equal(t, errcode.ErrDimensionMismatch, result.Code)

	f.ranker.err = fmt.Errorf("boom")
	result = f.do(t, http.MethodGet, "/api/v1/feed", nil)
	require.Equal(t, errcode.ErrInternal, result.Code)
}

func TestFeedPostWeights(t *testing.T) {
	f := setupRouter(t)
	result := f.do(t, http.MethodPost, "/api/v1/feed", map[string]interface{}{
		"page_size": 7,
		"cursor":    "c1",
		"weights":   map[string]float64{"temporal": 0.9},
	})
	require.Equal(t, 0, result.Code)
	require.Equal(t, 7, f.ranker.last.PageSize)
	require.Equal(t, "c1", f.ranker.last.Cursor)
	require.NotNil(t, f.ranker.last.Weights)
	require.NotNil(t, f.ranker.last.Weights.Temporal)
	require.Equal(t, 0.9, *f.ranker.last.Weights.Temporal)
	require.Nil(t, f.ranker.last.Weights.Similarity)
}

func TestFeedRequiresToken(t *testing.T) {
	f := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	var result apiResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, errcode.ErrUnauthorized, result.Code)
	require.Empty(t, f.ranker.last.IdentityID)
}

func TestMarkSeen(t *testing.T) {
	f := setupRouter(t)
	result := f.do(t, http.MethodPost, "/api/v1/feed/seen", map[string]interface{}{"content_ids": []string{"p1", "p2"}})
	require.Equal(t, 0, result.Code)
	require.Equal(t, "me", f.seen.identity)
	require.Equal(t, []string{"p1", "p2"}, f.seen.ids)

	f.seen.err = appErr.ErrInvalid
	result = f.do(t, http.MethodPost, "/api/v1/feed/seen", map[string]interface{}{"content_ids": []string{"x"}})
	require.Equal(t, errcode.ErrInvalid, result.Code)
}

func TestEvents(t *testing.T) {
	f := setupRouter(t)
	result := f.do(t, http.MethodPost, "/api/v1/events/follow", map[string]string{"target_id": "bob"})
	require.Equal(t, 0, result.Code)
	result = f.do(t, http.MethodPost, "/api/v1/events/privacy", nil)
	require.Equal(t, 0, result.Code)
	require.Equal(t, []model.MutationEvent{
		{Kind: model.EventFollow, ActorID: "me", TargetID: "bob"},
		{Kind: model.EventPrivacy, ActorID: "me"},
	}, f.events.events)

	result = f.do(t, http.MethodPost, "/api/v1/events/follow", map[string]string{})
	require.Equal(t, errcode.ErrInvalid, result.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "go_goroutines")
}
