package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mfeed/internal/middleware"
)

type RouterDeps struct {
	Feed            *FeedHandler
	Events          *EventHandler
	Metrics         http.Handler
	JWTSecret       []byte
	RateLimit       int
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.Use(middleware.RateLimit(deps.RateLimit, deps.RateLimitWindow))
	authGroup.GET("/feed", deps.Feed.Get)
	authGroup.POST("/feed", deps.Feed.Post)
	authGroup.POST("/feed/seen", deps.Feed.MarkSeen)

	authGroup.POST("/events/follow", deps.Events.Follow)
	authGroup.POST("/events/block", deps.Events.Block)
	authGroup.POST("/events/post", deps.Events.Post)
	authGroup.POST("/events/privacy", deps.Events.Privacy)
}
