package cache

import (
	"context"

	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/internal/metrics"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
)

func namePrefix(kind domain.EntityKind) (string, bool) {
	switch kind {
	case domain.EntityUser:
		return UserNamePrefix, true
	case domain.EntityGame:
		return GameNamePrefix, true
	default:
		return "", false
	}
}

// NameCache caches the serialized display metadata of users and games.
// It never talks to the upstream API; refilling misses is the caller's job.
type NameCache struct {
	store  store.KeyStore
	logger log.Logger
}

func NewNameCache(s store.KeyStore, logger log.Logger) *NameCache {
	return &NameCache{store: s, logger: logger}
}

// GetNames fetches all ids in one round trip. Ids without a cached value are
// absent from the returned map.
func (c *NameCache) GetNames(ctx context.Context, ids []string, kind domain.EntityKind) map[string]string {
	names := make(map[string]string, len(ids))
	prefix, ok := namePrefix(kind)
	if !ok || len(ids) == 0 {
		return names
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = prefix + id
	}

	entries, err := c.store.MGet(ctx, keys...)
	if err != nil {
		storeFailed(ctx, c.logger, "mget", prefix+"*", err)
		metrics.ObserveLookup(kind.String()+"_name", 0, len(ids))
		return names
	}

	for i, e := range entries {
		if e.Found {
			names[ids[i]] = e.Value
		}
	}
	metrics.ObserveLookup(kind.String()+"_name", len(names), len(ids)-len(names))

	return names
}

// SetNames stores serialized entities keyed by id. A value is only written
// when no value exists yet, and only the winning write sets the expiry, so a
// slow concurrent fetch can neither replace a fresher entry nor keep
// extending its lifetime.
func (c *NameCache) SetNames(ctx context.Context, values map[string]string, kind domain.EntityKind) {
	prefix, ok := namePrefix(kind)
	if !ok {
		c.logger.Warn(ctx, "Refusing to cache names for unknown entity kind", map[string]interface{}{
			"kind": kind.String(),
		})
		return
	}

	for id, value := range values {
		if id == "" || value == "" {
			continue
		}
		key := prefix + id

		won, err := c.store.SetNX(ctx, key, value)
		if err != nil {
			storeFailed(ctx, c.logger, "setnx", key, err)
			continue
		}
		if !won {
			continue
		}
		if err := c.store.Expire(ctx, key, DayTTL); err != nil {
			storeFailed(ctx, c.logger, "expire", key, err)
		}
	}
}
