package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pilab-dev/twitched-link/store"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (store.KeyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := store.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

var errBackendDown = errors.New("connection refused")

// downStore fails every call, like a Redis whose pool cannot connect.
type downStore struct{}

func (downStore) Get(context.Context, string) (string, bool, error) { return "", false, errBackendDown }
func (downStore) Set(context.Context, string, string, time.Duration) error {
	return errBackendDown
}
func (downStore) MGet(context.Context, ...string) ([]store.Entry, error) { return nil, errBackendDown }
func (downStore) SetNX(context.Context, string, string) (bool, error)    { return false, errBackendDown }
func (downStore) Expire(context.Context, string, time.Duration) error    { return errBackendDown }
func (downStore) Del(context.Context, ...string) (int64, error)          { return 0, errBackendDown }
func (downStore) SAdd(context.Context, string, ...string) error          { return errBackendDown }
func (downStore) SRem(context.Context, string, ...string) error          { return errBackendDown }
func (downStore) SMembers(context.Context, string) ([]string, error)     { return nil, errBackendDown }
func (downStore) Ping(context.Context) error                             { return errBackendDown }
func (downStore) Close() error                                           { return nil }
