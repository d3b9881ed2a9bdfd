package candidate

import (
	"context"
	"time"
)

type timeoutSource struct {
	next    Source
	timeout time.Duration
}

// WithTimeout bounds every search of next. A non-positive timeout returns next unchanged.
func WithTimeout(next Source, timeout time.Duration) Source {
	if next == nil || timeout <= 0 {
		return next
	}
	return &timeoutSource{next: next, timeout: timeout}
}

func (t *timeoutSource) Search(ctx context.Context, query []float32, limit int, filter Filter) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Search(ctx, query, limit, filter)
}
