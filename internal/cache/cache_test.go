package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache("order")

	key := c.GenerateKey("stats", "all")
	assert.Equal(t, "order:stats:all", key)

	value, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, c.Set(ctx, key, []byte(`{"total":1}`), time.Minute))
	value, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"total":1}`, value)

	require.NoError(t, c.Delete(ctx, key))
	value, _ = c.Get(ctx, key)
	assert.Equal(t, "", value)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache("order").(*memoryCache)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	now = now.Add(2 * time.Second)

	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestPingAndCloseIgnoreMemoryCache(t *testing.T) {
	c := NewMemoryCache("order")
	assert.NoError(t, Ping(context.Background(), c))
	assert.NoError(t, Close(c))
}
