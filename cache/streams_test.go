package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveSnapshot(userID, login, title string) domain.StreamSnapshot {
	return domain.StreamSnapshot{
		ID:          "s-" + userID,
		UserID:      userID,
		UserName:    &domain.UserName{DisplayName: login, Login: login},
		Title:       title,
		Type:        "live",
		ViewerCount: 10,
		Online:      true,
	}
}

func TestStreamCache_OnlineOfflineUncached(t *testing.T) {
	s, mr := newTestStore(t)
	c := cache.NewStreamCache(s, log.NewNop(), nil)
	ctx := context.Background()

	c.SetStreams(ctx, []domain.StreamSnapshot{
		liveSnapshot("A", "alpha", "hello"),
		domain.OfflineSnapshot("B"),
	})
	assert.Equal(t, cache.DefaultTTL, mr.TTL("_s_A"))
	assert.Equal(t, cache.DefaultTTL, mr.TTL("_s_B"))

	found, missing := c.GetStreams(ctx, []string{"A", "B", "C"})
	require.Len(t, found, 1)
	assert.Equal(t, "A", found[0].UserID)
	assert.Equal(t, "alpha", found[0].Login())
	assert.Equal(t, []string{"C"}, missing)
}

func TestStreamCache_Expiry(t *testing.T) {
	s, mr := newTestStore(t)
	c := cache.NewStreamCache(s, log.NewNop(), nil)
	ctx := context.Background()

	c.SetStreams(ctx, []domain.StreamSnapshot{domain.OfflineSnapshot("B")})
	mr.FastForward(cache.DefaultTTL + time.Second)

	found, missing := c.GetStreams(ctx, []string{"B"})
	assert.Empty(t, found)
	assert.Equal(t, []string{"B"}, missing)
}

func TestStreamCache_ContentPolicyStoresOffline(t *testing.T) {
	s, mr := newTestStore(t)
	c := cache.NewStreamCache(s, log.NewNop(), cache.DefaultContentPolicy)
	ctx := context.Background()

	c.SetStreams(ctx, []domain.StreamSnapshot{
		liveSnapshot("168843586", "blocked", "NFL Sunday"),
		liveSnapshot("168843587", "other", "NFL Sunday"),
	})

	raw, err := mr.Get("_s_168843586")
	require.NoError(t, err)
	var stored domain.StreamSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.False(t, stored.Online)
	assert.Equal(t, "DRM Stream | NFL Sunday", stored.Title)
	assert.Equal(t, "DRM Stream", stored.Type)

	found, missing := c.GetStreams(ctx, []string{"168843586", "168843587"})
	require.Len(t, found, 1)
	assert.Equal(t, "168843587", found[0].UserID)
	assert.Empty(t, missing)
}

func TestStreamCache_MalformedIsMissing(t *testing.T) {
	s, mr := newTestStore(t)
	c := cache.NewStreamCache(s, log.NewNop(), nil)

	require.NoError(t, mr.Set("_s_A", "{not json"))

	found, missing := c.GetStreams(context.Background(), []string{"A"})
	assert.Empty(t, found)
	assert.Equal(t, []string{"A"}, missing)
}

func TestStreamCache_SkipsUnaddressableSnapshots(t *testing.T) {
	s, mr := newTestStore(t)
	c := cache.NewStreamCache(s, log.NewNop(), nil)

	noLogin := liveSnapshot("A", "", "x")
	noLogin.UserName = nil
	c.SetStreams(context.Background(), []domain.StreamSnapshot{
		noLogin,
		domain.OfflineSnapshot(""),
	})
	assert.Empty(t, mr.Keys())
}

func TestStreamCache_ForeignSnapshotIsMissing(t *testing.T) {
	s, mr := newTestStore(t)
	c := cache.NewStreamCache(s, log.NewNop(), nil)

	raw, err := json.Marshal(liveSnapshot("Z", "zulu", "x"))
	require.NoError(t, err)
	require.NoError(t, mr.Set("_s_A", string(raw)))

	found, missing := c.GetStreams(context.Background(), []string{"A"})
	assert.Empty(t, found)
	assert.Equal(t, []string{"A"}, missing)
}

func TestStreamCache_BackendDown(t *testing.T) {
	c := cache.NewStreamCache(downStore{}, log.NewNop(), nil)
	ctx := context.Background()

	c.SetStreams(ctx, []domain.StreamSnapshot{domain.OfflineSnapshot("A")})
	found, missing := c.GetStreams(ctx, []string{"A", "B", "A"})
	assert.Empty(t, found)
	assert.Equal(t, []string{"A", "B"}, missing)
}

func TestRulePolicy(t *testing.T) {
	p := cache.RulePolicy{{TitleContains: "spoiler", Label: "Hidden"}}

	snap := liveSnapshot("1", "one", "Big SPOILER inside")
	assert.True(t, p.Apply(&snap))
	assert.False(t, snap.Online)
	assert.Equal(t, "Hidden | Big SPOILER inside", snap.Title)

	clean := liveSnapshot("1", "one", "all good")
	assert.False(t, p.Apply(&clean))
	assert.True(t, clean.Online)

	assert.False(t, cache.RulePolicy{{UserID: "1"}}.Apply(&clean))
}
