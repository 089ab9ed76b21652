package cache

import (
	"context"
	"encoding/json"

	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/internal/metrics"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/store"
)

// StreamCache caches per-user stream snapshots for a short time.
type StreamCache struct {
	store  store.KeyStore
	logger log.Logger
	policy ContentPolicy
}

// NewStreamCache creates a StreamCache. A nil policy caches snapshots as is.
func NewStreamCache(s store.KeyStore, logger log.Logger, policy ContentPolicy) *StreamCache {
	if policy == nil {
		policy = RulePolicy(nil)
	}
	return &StreamCache{store: s, logger: logger, policy: policy}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// GetStreams returns the cached live snapshots for ids and the ids that have
// to be refreshed upstream. Users cached as offline are neither found nor
// missing.
func (c *StreamCache) GetStreams(ctx context.Context, ids []string) ([]domain.StreamSnapshot, []string) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	requested := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		keys[i] = StreamPrefix + id
		requested[id] = struct{}{}
	}

	entries, err := c.store.MGet(ctx, keys...)
	if err != nil {
		storeFailed(ctx, c.logger, "mget", StreamPrefix+"*", err)
		entries = make([]store.Entry, len(ids))
	}

	found := make([]domain.StreamSnapshot, 0, len(ids))
	resolved := make(map[string]struct{}, len(ids))
	for i, e := range entries {
		if !e.Found {
			continue
		}

		var snap domain.StreamSnapshot
		if err := json.Unmarshal([]byte(e.Value), &snap); err != nil {
			c.logger.Error(ctx, "Discarding malformed stream snapshot", err, map[string]interface{}{
				"key": keys[i],
			})
			continue
		}

		if !snap.Online {
			resolved[ids[i]] = struct{}{}
			continue
		}
		if snap.UserID == "" || snap.Login() == "" {
			continue
		}
		if _, ok := requested[snap.UserID]; !ok {
			continue
		}
		if _, dup := resolved[snap.UserID]; dup {
			continue
		}
		resolved[snap.UserID] = struct{}{}
		found = append(found, snap)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, id)
		}
	}
	metrics.ObserveLookup("stream", len(resolved), len(missing))

	return found, missing
}

// SetStreams caches snapshots after passing them through the content policy
// and returns them as cached. Online snapshots need both a user id and a
// login. Offline snapshots only need the user id their key is built from.
func (c *StreamCache) SetStreams(ctx context.Context, snapshots []domain.StreamSnapshot) []domain.StreamSnapshot {
	cached := make([]domain.StreamSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.UserID == "" {
			continue
		}
		if snap.Online && snap.Login() == "" {
			continue
		}

		if c.policy.Apply(&snap) {
			c.logger.Debug(ctx, "Content policy rewrote stream snapshot", map[string]interface{}{
				"user_id": snap.UserID,
			})
		}

		raw, err := json.Marshal(snap)
		if err != nil {
			c.logger.Error(ctx, "Failed to encode stream snapshot", err, map[string]interface{}{
				"user_id": snap.UserID,
			})
			continue
		}

		key := StreamPrefix + snap.UserID
		if err := c.store.Set(ctx, key, string(raw), DefaultTTL); err != nil {
			storeFailed(ctx, c.logger, "set", key, err)
		}
		cached = append(cached, snap)
	}
	return cached
}
