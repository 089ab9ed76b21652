package services

import (
	"context"
	"fmt"

	"github.com/pilab-dev/twitched-link/errors"
	"github.com/pilab-dev/twitched-link/internal/metrics"
	"github.com/pilab-dev/twitched-link/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// upstreamFailed records a failed refill and returns the error callers see.
// Nothing is written back to the cache for the failed batch.
func upstreamFailed(ctx context.Context, logger log.Logger, span trace.Span, resource string, err error) error {
	metrics.UpstreamFailures.WithLabelValues(resource).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "upstream refill failed")
	logger.Error(ctx, "Upstream refill failed", err, map[string]interface{}{
		"resource": resource,
	})
	return fmt.Errorf("%w: %s: %v", errors.ErrUpstreamUnavailable, resource, err)
}
