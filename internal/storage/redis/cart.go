// Package redis stores session carts in Redis hashes.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/internal/domain/cart"
)

const keyPrefix = "storefront:cart:"

// NewClient parses a redis:// URL, connects and pings the server.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps one hash per session, product ID to quantity. Every save
// rewrites the whole hash in a MULTI block and refreshes its TTL.
type CartStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewCartStore returns a CartStore. A zero ttl keeps carts forever.
func NewCartStore(client goredis.UniversalClient, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

// Load returns the session's cart, empty when nothing is stored.
func (s *CartStore) Load(ctx context.Context, sessionKey string) (cart.Cart, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+sessionKey).Result()
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	c := make(cart.Cart, len(fields))
	for id, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding cart entry %q: %w", id, err)
		}
		if n > 0 {
			c[id] = n
		}
	}
	return c, nil
}

// Save replaces the session's cart. An empty cart deletes the key.
func (s *CartStore) Save(ctx context.Context, sessionKey string, c cart.Cart) error {
	key := keyPrefix + sessionKey

	values := make([]any, 0, 2*len(c))
	for id, n := range c {
		if n > 0 {
			values = append(values, id, n)
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) == 0 {
			return nil
		}
		pipe.HSet(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}
