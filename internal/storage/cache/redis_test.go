package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	c, err := NewRedisCache(context.Background(), url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "test:prices:AAPL", map[string]int{"rows": 2}))

	var got map[string]int
	require.NoError(t, c.Get(ctx, "test:prices:AAPL", &got))
	assert.Equal(t, 2, got["rows"])

	n, err := c.DeletePattern(ctx, "test:prices:*")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, c.Get(ctx, "test:prices:AAPL", &got), ErrCacheMiss)
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}
