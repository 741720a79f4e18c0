package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manavgup/toolgate/gateway"
	"github.com/manavgup/toolgate/schema"
	"github.com/manavgup/toolgate/tool"
)

// setupTestCache creates a miniredis instance and returns a connected cache.
func setupTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache, err := NewRedisCache(RedisOptions{
		URL: fmt.Sprintf("redis://%s", mr.Addr()),
		TTL: ttl,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = cache.Close() })

	return cache, mr
}

func TestNewRedisCache(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		cache, _ := setupTestCache(t, 0)
		assert.Equal(t, DefaultKey, cache.key)
		assert.Equal(t, DefaultTTL, cache.ttl)
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRedisCache(RedisOptions{
			URL:            "redis://localhost:1",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRedisCache(RedisOptions{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	// Empty cache is a miss.
	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	descriptors := []tool.Descriptor{
		{Name: "web_search", Description: "Search the web"},
		{
			Name:        "summarize",
			Description: "Summarize text",
			InputSchema: &schema.JSON{Type: "object", Required: []string{"text"}},
		},
	}
	require.NoError(t, cache.Put(ctx, descriptors))

	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "web_search", got[0].Name)
	require.NotNil(t, got[1].InputSchema)
	assert.Equal(t, []string{"text"}, got[1].InputSchema.Required)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	cache, mr := setupTestCache(t, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, []tool.Descriptor{{Name: "t"}}))

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must be a miss")
}

func TestRedisCache_Invalidate(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, []tool.Descriptor{{Name: "t"}}))
	require.NoError(t, cache.Invalidate(ctx))

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_WithGatewayClient(t *testing.T) {
	cache, _ := setupTestCache(t, time.Minute)

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"tools": [{"name": "web_search", "description": "Search the web"}]}`))
	}))
	defer server.Close()

	client, err := gateway.New(gateway.Options{GatewayURL: server.URL, Catalog: cache})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	// First listing hits the gateway and populates the cache; the second is
	// served from Redis.
	first := client.ListTools(ctx)
	require.Len(t, first, 1)
	require.Equal(t, int64(1), hits.Load())

	second := client.ListTools(ctx)
	require.Len(t, second, 1)
	assert.Equal(t, int64(1), hits.Load(), "fresh cache must avoid a network call")
}
