package redis

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisCache_RequiresHost(t *testing.T) {
	cache, err := NewRedisCache(&Config{})
	assert.Error(t, err)
	assert.Nil(t, cache)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Skipping Redis test. Set REDIS_TEST_ADDR=host:port to run it")
	}

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	cache, err := NewRedisCache(&Config{Host: host, Port: port, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()
	key := "waitlister:test:" + t.Name()

	missing, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "", missing)

	require.NoError(t, cache.Set(ctx, key, "42", time.Minute))
	value, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "42", value)

	require.NoError(t, cache.Delete(ctx, key))
	value, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "", value)
}
