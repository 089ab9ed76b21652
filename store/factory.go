package store

import (
	"context"
	"fmt"

	"github.com/pilab-dev/twitched-link/config"
	"github.com/pilab-dev/twitched-link/log"
)

// NewFromConfig creates the KeyStore selected by cfg.StoreType. The returned
// store owns its connections; the caller must Close it.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger log.Logger) (KeyStore, error) {
	switch cfg.StoreType {
	case config.StoreTypeMemory:
		logger.Info(ctx, "Initializing in-memory key store", map[string]interface{}{
			"store_type": string(cfg.StoreType),
		})
		return NewMemoryStore(), nil

	case config.StoreTypeRedis:
		logger.Info(ctx, "Initializing Redis key store", map[string]interface{}{
			"store_type":  string(cfg.StoreType),
			"tls":         cfg.RedisSecure,
			"trust":       cfg.RedisTrust != "",
			"connections": cfg.RedisConnections,
		})
		client := NewRedisClient(ctx, RedisOptions{
			URL:         cfg.RedisURL,
			Secure:      cfg.RedisSecure,
			TrustPEM:    cfg.TrustPEM(),
			PoolSize:    cfg.RedisConnections,
			PoolTimeout: cfg.RedisPoolTimeout,
		}, logger)
		return NewRedisStore(client), nil

	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}
}
