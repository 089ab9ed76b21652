// Package store is the key-value layer every cache and the pairing service
// sit on. Implementations return explicit errors; deciding to degrade a
// failed call to "absent" is left to the caller, which also logs it.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrWrongType mirrors Redis' WRONGTYPE reply for the in-memory backend.
var ErrWrongType = errors.New("operation against a key holding the wrong kind of value")

// Entry is one MGet result, aligned with the requested key.
type Entry struct {
	Value string
	Found bool
}

// KeyStore is the subset of Redis the cache layer needs. A ttl <= 0 means
// the key does not expire.
type KeyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) ([]Entry, error)
	// SetNX writes value only when key does not exist, reporting whether it did.
	SetNX(ctx context.Context, key, value string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
