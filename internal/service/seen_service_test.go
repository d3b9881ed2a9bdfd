package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

func TestSeenServiceMarkSeen(t *testing.T) {
	ctx := context.Background()
	seen := newFakeSeen()
	artifacts := newTestArtifacts(t)
	artifacts.SetSeen(ctx, "me", map[string]int64{"old": 1})
	svc := NewSeenService(seen, artifacts, 30)
	svc.now = func() time.Time { return testNow }

	require.NoError(t, svc.MarkSeen(ctx, "me", []string{"p1", "p2", "p1"}))
	require.Equal(t, []string{"p1", "p2"}, seen.marked["me"])
	require.Equal(t, testNow.Unix(), seen.records["me"][0].SeenAt)
	_, ok := artifacts.GetSeen(ctx, "me")
	require.False(t, ok)

	require.NoError(t, svc.MarkSeen(ctx, "me", nil))
	require.ErrorIs(t, svc.MarkSeen(ctx, "", []string{"p1"}), appErr.ErrInvalid)
	require.ErrorIs(t, svc.MarkSeen(ctx, "me", []string{"bad id"}), appErr.ErrInvalid)
	tooMany := make([]string, maxSeenBatch+1)
	for i := range tooMany {
		tooMany[i] = "p"
	}
	require.ErrorIs(t, svc.MarkSeen(ctx, "me", tooMany), appErr.ErrInvalid)

	seen.err = errDown
	require.ErrorIs(t, svc.MarkSeen(ctx, "me", []string{"p3"}), errDown)
}

func TestSeenServicePurgeExpired(t *testing.T) {
	seen := newFakeSeen()
	seen.deleteN = 4
	svc := NewSeenService(seen, nil, 10)
	svc.now = func() time.Time { return testNow }
	n, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
	require.Equal(t, testNow.Add(-10*24*time.Hour).Unix(), seen.cutoff)
}
