package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/insights/internal/pkg/env"
)

// isolated DB index so the test never touches real sessions
const testRedisDB = 14

func newTestSessionCache(t *testing.T) *SessionCache {
	t.Helper()

	addr := env.GetEnv("CACHE_HOST", "localhost") + ":" + env.GetEnv("CACHE_PORT", "6379")
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       testRedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return NewSessionCache(client)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "insights:session:42", sessionKey(42))
}

func TestSessionCacheRoundTrip(t *testing.T) {
	c := newTestSessionCache(t)
	ctx := context.Background()

	_, ok, err := c.GetToken(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetToken(ctx, 1, "first", time.Minute))
	require.NoError(t, c.SetToken(ctx, 1, "second", time.Minute))

	token, ok, err := c.GetToken(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", token)
}
