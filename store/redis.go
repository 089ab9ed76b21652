package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pilab-dev/twitched-link/log"
	"github.com/redis/go-redis/v9"
)

// RedisOptions describes how to reach the Redis server.
type RedisOptions struct {
	URL         string
	Secure      bool   // upgrade redis:// to rediss://
	TrustPEM    string // optional CA bundle used instead of the system roots
	PoolSize    int
	PoolTimeout time.Duration
}

// NewRedisClient builds a pooled go-redis client. It never fails: an
// unparsable URL falls back to the default local server and a bad trust
// anchor falls back to the system roots, both logged as warnings.
func NewRedisClient(ctx context.Context, o RedisOptions, logger log.Logger) *redis.Client {
	url := o.URL
	if o.Secure {
		url = strings.Replace(url, "redis://", "rediss://", 1)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn(ctx, "Invalid Redis URL, falling back to the default server", map[string]interface{}{
			"error": err.Error(),
		})
		opts = &redis.Options{Addr: "localhost:6379"}
	}

	if opts.TLSConfig == nil {
		logger.Warn(ctx, "Connecting to Redis without TLS")
	} else if o.TrustPEM != "" {
		tlsConfig, err := trustAnchorTLS(opts.TLSConfig, o.TrustPEM)
		if err != nil {
			logger.Error(ctx, "Failed to load Redis trust anchor, using system roots", err)
		} else {
			opts.TLSConfig = tlsConfig
		}
	}

	if o.PoolSize > 0 {
		opts.PoolSize = o.PoolSize
	}
	if o.PoolTimeout > 0 {
		opts.PoolTimeout = o.PoolTimeout
	}

	return redis.NewClient(opts)
}

func trustAnchorTLS(base *tls.Config, pem string) (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(pem)) {
		return nil, errors.New("no certificates found in trust anchor PEM")
	}
	cfg := base.Clone()
	cfg.RootCAs = pool
	return cfg, nil
}

// RedisStore implements KeyStore on a pooled go-redis client. The pool
// blocks callers for up to PoolTimeout when every connection is busy.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client. The caller owns its lifecycle
// through Close.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) MGet(ctx context.Context, keys ...string) ([]Entry, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	if len(vals) != len(keys) {
		return nil, fmt.Errorf("redis mget: got %d values for %d keys", len(vals), len(keys))
	}

	entries := make([]Entry, len(keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			entries[i] = Entry{Value: s, Found: true}
		}
	}
	return entries, nil
}

func (r *RedisStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (r *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return n, nil
}

func (r *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := r.client.SAdd(ctx, key, toArgs(members)...).Err(); err != nil {
		return fmt.Errorf("redis sadd %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := r.client.SRem(ctx, key, toArgs(members)...).Err(); err != nil {
		return fmt.Errorf("redis srem %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers %s: %w", key, err)
	}
	return members, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}

var _ KeyStore = (*RedisStore)(nil)
