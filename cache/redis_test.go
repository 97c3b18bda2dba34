package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chaos-io/maskeraser/config"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 redis，设置 REDIS_ADDR 后运行
func newTestCache(t *testing.T) *RedisCache {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	c := NewRedisCache(&config.RedisConfig{Addr: addr, TTL: time.Minute})
	t.Cleanup(func() {
		_ = c.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return c
}

func TestRedisCache_GetSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := ksuid.New().String()

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, "data:image/png;base64,AAA"))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "data:image/png;base64,AAA", got)
}
