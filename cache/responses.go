package cache

import (
	"context"

	"github.com/pilab-dev/twitched-link/internal/metrics"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
)

// ResponseCache stores whole rendered responses under RequestKey keys.
type ResponseCache struct {
	store  store.KeyStore
	logger log.Logger
}

func NewResponseCache(s store.KeyStore, logger log.Logger) *ResponseCache {
	return &ResponseCache{store: s, logger: logger}
}

// Get returns the cached response for key.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	val, found, err := c.store.Get(ctx, key)
	if err != nil {
		storeFailed(ctx, c.logger, "get", key, err)
		found = false
	}
	if found {
		metrics.ObserveLookup("response", 1, 0)
	} else {
		metrics.ObserveLookup("response", 0, 1)
	}
	return val, found
}

// Set caches value for DefaultTTL.
func (c *ResponseCache) Set(ctx context.Context, key, value string) {
	if err := c.store.Set(ctx, key, value, DefaultTTL); err != nil {
		storeFailed(ctx, c.logger, "set", key, err)
	}
}
