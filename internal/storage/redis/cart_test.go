//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/storage/redis"
)

func newStore(t *testing.T, ttl time.Duration) *redis.CartStore {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	url, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := redis.NewClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewCartStore(client, ttl)
}

func TestCartStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, time.Hour)

	got, err := s.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Save(ctx, "sess", cart.Cart{"a": 2, "b": 1}))
	got, err = s.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, cart.Cart{"a": 2, "b": 1}, got)

	// Saving rewrites rather than merges.
	require.NoError(t, s.Save(ctx, "sess", cart.Cart{"b": 3}))
	got, err = s.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, cart.Cart{"b": 3}, got)

	require.NoError(t, s.Save(ctx, "sess", cart.Cart{}))
	got, err = s.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCartStore_SessionsIsolated(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	require.NoError(t, s.Save(ctx, "one", cart.Cart{"a": 1}))
	require.NoError(t, s.Save(ctx, "two", cart.Cart{"a": 5}))

	one, err := s.Load(ctx, "one")
	require.NoError(t, err)
	two, err := s.Load(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, 1, one["a"])
	assert.Equal(t, 5, two["a"])
}
