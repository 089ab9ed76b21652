package services

import (
	"context"
	"time"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultFollowRefresh is how long a follow set is served before it is
// fetched again.
const DefaultFollowRefresh = time.Hour

// FollowService serves follow sets, refreshing them once they are stale.
type FollowService struct {
	follows  *cache.FollowCache
	upstream FollowFetcher
	logger   log.Logger
	refresh  time.Duration
	now      func() time.Time
}

func NewFollowService(follows *cache.FollowCache, upstream FollowFetcher, logger log.Logger, refresh time.Duration) *FollowService {
	if refresh <= 0 {
		refresh = DefaultFollowRefresh
	}
	return &FollowService{follows: follows, upstream: upstream, logger: logger, refresh: refresh, now: time.Now}
}

// Follows returns the ids userID follows. A stale set is refreshed from the
// upstream with userToken, which must be userID's own access token; if the
// refresh fails the stale set is returned with the error. Kinds the upstream
// cannot list are served from the cache alone.
func (s *FollowService) Follows(ctx context.Context, userToken, userID string, kind domain.FollowKind) ([]string, error) {
	ctx, span := tracing.Start(ctx, "FollowService.Follows")
	defer span.End()
	span.SetAttributes(attribute.String("follow.kind", kind.String()))

	if userID == "" {
		return nil, errors.ErrInvalidRequest
	}

	stamp := s.follows.GetFollowTimestamp(ctx, userID, kind)
	if stamp != 0 && s.now().Sub(time.UnixMilli(stamp)) < s.refresh {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return s.follows.GetFollows(ctx, userID, kind), nil
	}

	ids, err := s.upstream.Follows(ctx, userToken, userID, kind)
	if errors.Is(err, errors.ErrUnsupported) {
		s.logger.Debug(ctx, "Upstream cannot list follows, serving cached set", map[string]interface{}{
			"kind": kind.String(),
		})
		return s.follows.GetFollows(ctx, userID, kind), nil
	}
	if err != nil {
		return s.follows.GetFollows(ctx, userID, kind), upstreamFailed(ctx, s.logger, span, "follows", err)
	}
	s.follows.ReplaceFollows(ctx, userID, ids, kind)

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
