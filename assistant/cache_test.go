package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return "", false, errors.New("connection refused")
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = answer
	return nil
}

func TestCachedGatewayReusesAnswer(t *testing.T) {
	backend := &scripted{answer: "cached answer"}
	gw := WithCache(backend, newMemoryCache(), nil)
	req := Request{SystemPrompt: SystemPrompt, UserPrompt: "q"}

	for i := 0; i < 3; i++ {
		got, err := gw.Complete(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "cached answer", got)
	}
	assert.Equal(t, 1, backend.Calls())

	_, err := gw.Complete(context.Background(), Request{SystemPrompt: SystemPrompt, UserPrompt: "other"})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.Calls())
}

func TestCachedGatewaySurvivesCacheFailure(t *testing.T) {
	backend := &scripted{answer: "fresh"}
	cache := newMemoryCache()
	cache.failGet = true
	gw := WithCache(backend, cache, nil)

	got, err := gw.Complete(context.Background(), Request{UserPrompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	assert.Equal(t, 1, backend.Calls())
}

func TestCachedGatewayDoesNotStoreErrors(t *testing.T) {
	backend := &scripted{errs: []error{&StatusError{Provider: "test", Code: 500}}, answer: "second"}
	cache := newMemoryCache()
	gw := WithCache(backend, cache, nil)

	_, err := gw.Complete(context.Background(), Request{UserPrompt: "q"})
	require.Error(t, err)
	assert.Empty(t, cache.data)

	got, err := gw.Complete(context.Background(), Request{UserPrompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestRequestKey(t *testing.T) {
	a := RequestKey(Request{UserPrompt: "q"})
	assert.Len(t, a, 64)
	assert.Equal(t, a, RequestKey(Request{UserPrompt: "q"}))
	assert.NotEqual(t, a, RequestKey(Request{UserPrompt: "q2"}))
	assert.NotEqual(t, a, RequestKey(Request{UserPrompt: "q", SystemPrompt: "s"}))
}

// TestRedisCache_Integration requires a running Redis.
// We skip if connection fails.
func TestRedisCache_Integration(t *testing.T) {
	cache, err := NewRedisCache("redis://localhost:6379/0", time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}

	key := RequestKey(Request{UserPrompt: "integration " + time.Now().String()})
	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, "answer"))
	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "answer", got)
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache("not a url", time.Minute)
	assert.Error(t, err)
}
