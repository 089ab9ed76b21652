package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
)

func followPrefixes(kind domain.FollowKind) (set, timestamp string) {
	if kind == domain.FollowGame {
		return FollowGamePrefix, FollowTimeGamePrefix
	}
	return FollowPrefix, FollowTimePrefix
}

// FollowCache caches the ids a subject follows, one set per follow kind,
// plus the time each set was last replaced.
type FollowCache struct {
	store  store.KeyStore
	logger log.Logger
	now    func() time.Time
}

func NewFollowCache(s store.KeyStore, logger log.Logger) *FollowCache {
	return &FollowCache{store: s, logger: logger, now: time.Now}
}

// WithClock overrides the clock used for freshness timestamps.
func (c *FollowCache) WithClock(now func() time.Time) *FollowCache {
	c.now = now
	return c
}

// GetFollows returns the cached members, empty when nothing is cached.
func (c *FollowCache) GetFollows(ctx context.Context, subjectID string, kind domain.FollowKind) []string {
	setPrefix, _ := followPrefixes(kind)
	key := setPrefix + subjectID

	members, err := c.store.SMembers(ctx, key)
	if err != nil {
		storeFailed(ctx, c.logger, "smembers", key, err)
		return []string{}
	}
	return members
}

// ReplaceFollows swaps the whole set for ids and stamps the refresh time,
// even when ids is empty. Old members are removed before new ones are added
// without a transaction, so a concurrent reader may briefly see an empty set.
func (c *FollowCache) ReplaceFollows(ctx context.Context, subjectID string, ids []string, kind domain.FollowKind) {
	setPrefix, timePrefix := followPrefixes(kind)
	key := setPrefix + subjectID

	if current := c.GetFollows(ctx, subjectID, kind); len(current) > 0 {
		if err := c.store.SRem(ctx, key, current...); err != nil {
			storeFailed(ctx, c.logger, "srem", key, err)
		}
	}

	if len(ids) > 0 {
		if err := c.store.SAdd(ctx, key, ids...); err != nil {
			storeFailed(ctx, c.logger, "sadd", key, err)
		} else if err := c.store.Expire(ctx, key, DayTTL); err != nil {
			storeFailed(ctx, c.logger, "expire", key, err)
		}
	}

	timeKey := timePrefix + subjectID
	stamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	if err := c.store.Set(ctx, timeKey, stamp, HourTTL); err != nil {
		storeFailed(ctx, c.logger, "set", timeKey, err)
	}
}

// GetFollowTimestamp returns when the set was last replaced in epoch
// milliseconds, or 0 if it never was (or the stamp expired).
func (c *FollowCache) GetFollowTimestamp(ctx context.Context, subjectID string, kind domain.FollowKind) int64 {
	_, timePrefix := followPrefixes(kind)
	key := timePrefix + subjectID

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		storeFailed(ctx, c.logger, "get", key, err)
		return 0
	}
	if !found || raw == "" {
		return 0
	}

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}
