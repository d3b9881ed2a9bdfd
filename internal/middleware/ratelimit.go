package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/pkg/errcode"
	"github.com/xxxsen/mfeed/internal/pkg/response"
)

type windowCount struct {
	start time.Time
	count int
}

// rateLimiter allows limit requests per key within each fixed window. Keys
// are identity (or client ip when anonymous) plus route.
type rateLimiter struct {
	mu            sync.Mutex
	limit         int
	window        time.Duration
	last          map[string]windowCount
	sweepInterval time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := &rateLimiter{
		limit:         limit,
		window:        window,
		last:          make(map[string]windowCount),
		sweepInterval: window,
		now:           time.Now,
	}
	return limiter.handle
}

func (l *rateLimiter) key(c *gin.Context) (string, string) {
	who := c.ClientIP()
	if v, ok := c.Get(ContextIdentityIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			who = id
		}
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return strings.Join([]string{who, c.Request.Method, path}, "|"), who
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.window <= 0 || l.limit <= 0 {
		c.Next()
		return
	}
	key, who := l.key(c)
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.sweepInterval {
		l.cleanupExpiredLocked(now)
	}
	wc, exists := l.last[key]
	if !exists || now.Sub(wc.start) >= l.window {
		wc = windowCount{start: now}
	}
	if wc.count >= l.limit {
		l.mu.Unlock()
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("who", who),
			zap.String("path", c.Request.URL.Path),
		)
		response.Error(c, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		c.Abort()
		return
	}
	wc.count++
	l.last[key] = wc
	l.mu.Unlock()
	c.Next()
}

func (l *rateLimiter) cleanupExpiredLocked(now time.Time) {
	for key, wc := range l.last {
		if now.Sub(wc.start) >= l.window {
			delete(l.last, key)
		}
	}
	l.lastSweep = now
}
