package cache

import (
	"context"

	"github.com/pilab-dev/twitched-link/internal/metrics"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
)

// UserIDCache maps user logins to user ids.
type UserIDCache struct {
	store  store.KeyStore
	logger log.Logger
}

func NewUserIDCache(s store.KeyStore, logger log.Logger) *UserIDCache {
	return &UserIDCache{store: s, logger: logger}
}

// GetUserIDs returns the cached id of every login that has one. Empty logins
// are ignored.
func (c *UserIDCache) GetUserIDs(ctx context.Context, logins []string) map[string]string {
	ids := make(map[string]string, len(logins))

	wanted := make([]string, 0, len(logins))
	keys := make([]string, 0, len(logins))
	for _, login := range logins {
		if login == "" {
			continue
		}
		wanted = append(wanted, login)
		keys = append(keys, UserIDPrefix+login)
	}
	if len(keys) == 0 {
		return ids
	}

	entries, err := c.store.MGet(ctx, keys...)
	if err != nil {
		storeFailed(ctx, c.logger, "mget", UserIDPrefix+"*", err)
		metrics.ObserveLookup("user_id", 0, len(wanted))
		return ids
	}
	for i, e := range entries {
		if e.Found {
			ids[wanted[i]] = e.Value
		}
	}
	metrics.ObserveLookup("user_id", len(ids), len(wanted)-len(ids))

	return ids
}

// SetUserIDs stores login to id mappings for a day, skipping empty entries.
func (c *UserIDCache) SetUserIDs(ctx context.Context, loginIDs map[string]string) {
	for login, id := range loginIDs {
		if login == "" || id == "" {
			continue
		}
		key := UserIDPrefix + login
		if err := c.store.Set(ctx, key, id, DayTTL); err != nil {
			storeFailed(ctx, c.logger, "set", key, err)
		}
	}
}
