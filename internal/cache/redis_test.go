package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mfeed/internal/testutil"
)

func TestRedisStore(t *testing.T) {
	addr := testutil.RedisAddr(t)
	ctx := context.Background()
	client, err := NewRedisClient(ctx, "redis://"+addr+"/0")
	require.NoError(t, err)
	defer client.Close()

	prefix := fmt.Sprintf("mfeed-test-%d:", time.Now().UnixNano())
	s := NewRedisStore(client, prefix)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "rank:u1:w", []byte("a"), time.Minute))
	require.NoError(t, s.Set(ctx, "rank:u2:w", []byte("b"), time.Minute))
	require.NoError(t, s.Set(ctx, "seen:u1", []byte("c"), time.Minute))
	blob, ok, err := s.Get(ctx, "rank:u1:w")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("a"), blob)

	n, err := s.Invalidate(ctx, "rank:*")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = s.Invalidate(ctx, "seen:u1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
