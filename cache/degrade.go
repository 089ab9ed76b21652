package cache

import (
	"context"

	"github.com/pilab-dev/twitched-link/internal/metrics"
	"github.com/pilab-dev/twitched-link/log"
)

// storeFailed records a store error that is being absorbed.
func storeFailed(ctx context.Context, logger log.Logger, op, key string, err error) {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	logger.Error(ctx, "Key store operation failed", err, map[string]interface{}{
		"op":  op,
		"key": key,
	})
}
