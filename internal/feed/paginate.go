// Package feed turns a ranked candidate list into cursor pages.
package feed

import (
	"fmt"
	"regexp"

	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
	"github.com/xxxsen/mfeed/internal/scoring"
)

const maxCursorLen = 64

var cursorPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateCursor accepts an empty cursor (first page) or a content id.
func ValidateCursor(cursor string) error {
	if cursor == "" {
		return nil
	}
	if len(cursor) > maxCursorLen || !cursorPattern.MatchString(cursor) {
		return fmt.Errorf("malformed cursor: %w", appErr.ErrInvalid)
	}
	return nil
}

// ValidatePageSize checks 1 <= size <= max.
func ValidatePageSize(size, max int) error {
	if size < 1 || size > max {
		return fmt.Errorf("page size must be within [1,%d]: %w", max, appErr.ErrInvalid)
	}
	return nil
}

// Paginate returns the slice of ranked that follows cursor. The cursor is the
// id of the last item of the previous page; next is empty when nothing remains.
// A cursor missing from a non-empty ranked list is ErrInvalid so the client
// restarts from the first page. An empty list (cold start, degraded feed)
// yields an empty page for any cursor.
func Paginate(ranked []scoring.Candidate, cursor string, size int) (page []scoring.Candidate, next string, err error) {
	if err := ValidateCursor(cursor); err != nil {
		return nil, "", err
	}
	if size < 1 {
		return nil, "", fmt.Errorf("page size must be positive: %w", appErr.ErrInvalid)
	}
	start := 0
	if cursor != "" && len(ranked) == 0 {
		return []scoring.Candidate{}, "", nil
	}
	if cursor != "" {
		start = -1
		for i, c := range ranked {
			if c.ID == cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, "", fmt.Errorf("cursor %s not in ranked list: %w", cursor, appErr.ErrInvalid)
		}
	}
	end := start + size
	if end > len(ranked) {
		end = len(ranked)
	}
	page = make([]scoring.Candidate, end-start)
	copy(page, ranked[start:end])
	if end < len(ranked) && len(page) > 0 {
		next = page[len(page)-1].ID
	}
	return page, next, nil
}
