package services

import (
	"context"

	"github.com/pilab-dev/twitched-link/cache"
	"github.com/pilab-dev/twitched-link/domain"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// StreamService returns live streams, caching offline users as well.
type StreamService struct {
	streams  *cache.StreamCache
	upstream StreamFetcher
	logger   log.Logger
}

func NewStreamService(streams *cache.StreamCache, upstream StreamFetcher, logger log.Logger) *StreamService {
	return &StreamService{streams: streams, upstream: upstream, logger: logger}
}

// LiveStreams returns the streams of userIDs that are live. Users the
// upstream does not report as live are cached as offline.
func (s *StreamService) LiveStreams(ctx context.Context, userIDs []string) ([]domain.StreamSnapshot, error) {
	ctx, span := tracing.Start(ctx, "StreamService.LiveStreams")
	defer span.End()

	found, missing := s.streams.GetStreams(ctx, userIDs)
	span.SetAttributes(attribute.Int("cache.misses", len(missing)))
	if len(missing) == 0 {
		return found, nil
	}

	live, err := s.upstream.LiveStreams(ctx, missing)
	if err != nil {
		return found, upstreamFailed(ctx, s.logger, span, "streams", err)
	}

	wanted := make(map[string]struct{}, len(missing))
	for _, id := range missing {
		wanted[id] = struct{}{}
	}

	fresh := make([]domain.StreamSnapshot, 0, len(missing))
	for _, snap := range live {
		if _, ok := wanted[snap.UserID]; !ok {
			continue
		}
		delete(wanted, snap.UserID)
		snap.Online = true
		fresh = append(fresh, snap)
	}
	for _, id := range missing {
		if _, ok := wanted[id]; ok {
			fresh = append(fresh, domain.OfflineSnapshot(id))
		}
	}

	for _, snap := range s.streams.SetStreams(ctx, fresh) {
		if snap.Online {
			found = append(found, snap)
		}
	}
	return found, nil
}
