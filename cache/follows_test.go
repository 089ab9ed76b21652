package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/stretchr/testify/assert"
)

func TestFollowCache_ReplaceAndGet(t *testing.T) {
	s, mr := newTestStore(t)
	now := time.UnixMilli(1700000000000)
	c := cache.NewFollowCache(s, log.NewNop()).WithClock(func() time.Time { return now })
	ctx := context.Background()

	assert.Empty(t, c.GetFollows(ctx, "S", domain.FollowChannel))
	assert.Zero(t, c.GetFollowTimestamp(ctx, "S", domain.FollowChannel))

	c.ReplaceFollows(ctx, "S", []string{"1", "2", "3"}, domain.FollowChannel)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, c.GetFollows(ctx, "S", domain.FollowChannel))
	assert.Equal(t, now.UnixMilli(), c.GetFollowTimestamp(ctx, "S", domain.FollowChannel))
	assert.Equal(t, cache.DayTTL, mr.TTL("_f_S"))
	assert.Equal(t, cache.HourTTL, mr.TTL("_ft_S"))

	c.ReplaceFollows(ctx, "S", []string{"3", "4"}, domain.FollowChannel)
	assert.ElementsMatch(t, []string{"3", "4"}, c.GetFollows(ctx, "S", domain.FollowChannel))
}

func TestFollowCache_ReplaceWithEmptyClearsAndStamps(t *testing.T) {
	s, _ := newTestStore(t)
	c := cache.NewFollowCache(s, log.NewNop())
	ctx := context.Background()

	c.ReplaceFollows(ctx, "S", []string{"1"}, domain.FollowChannel)
	c.ReplaceFollows(ctx, "S", []string{}, domain.FollowChannel)

	assert.Empty(t, c.GetFollows(ctx, "S", domain.FollowChannel))
	assert.NotZero(t, c.GetFollowTimestamp(ctx, "S", domain.FollowChannel))
}

func TestFollowCache_KindsAreSeparate(t *testing.T) {
	s, mr := newTestStore(t)
	c := cache.NewFollowCache(s, log.NewNop())
	ctx := context.Background()

	c.ReplaceFollows(ctx, "S", []string{"g1"}, domain.FollowGame)

	assert.Empty(t, c.GetFollows(ctx, "S", domain.FollowChannel))
	assert.Zero(t, c.GetFollowTimestamp(ctx, "S", domain.FollowChannel))
	assert.Equal(t, []string{"g1"}, c.GetFollows(ctx, "S", domain.FollowGame))
	assert.True(t, mr.Exists("_fg_S"))
	assert.True(t, mr.Exists("_ftg_S"))
}

func TestFollowCache_TimestampExpiresAndGarbage(t *testing.T) {
	s, mr := newTestStore(t)
	c := cache.NewFollowCache(s, log.NewNop())
	ctx := context.Background()

	c.ReplaceFollows(ctx, "S", []string{"1"}, domain.FollowChannel)
	mr.FastForward(cache.HourTTL + time.Second)
	assert.Zero(t, c.GetFollowTimestamp(ctx, "S", domain.FollowChannel))
	assert.Equal(t, []string{"1"}, c.GetFollows(ctx, "S", domain.FollowChannel))

	mr.Set("_ft_S", "yesterday")
	assert.Zero(t, c.GetFollowTimestamp(ctx, "S", domain.FollowChannel))
}

func TestFollowCache_BackendDown(t *testing.T) {
	c := cache.NewFollowCache(downStore{}, log.NewNop())
	ctx := context.Background()

	c.ReplaceFollows(ctx, "S", []string{"1"}, domain.FollowChannel)
	assert.Equal(t, []string{}, c.GetFollows(ctx, "S", domain.FollowChannel))
	assert.Zero(t, c.GetFollowTimestamp(ctx, "S", domain.FollowChannel))
}
